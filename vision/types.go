package vision

import "fmt"

// EmbeddingDim is the vector length produced by the analyzer's face encoder.
const EmbeddingDim = 128

// BoundingBox locates a face in source-image pixel coordinates.
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// EmotionResult carries the analyzer's per-face emotion classification. It is
// only present when EmotionStatus is "ok".
type EmotionResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Valence    float64 `json:"valence"`
}

// FaceDetection is one face found by the analyzer, with its identity
// embedding and precomputed composite quality score.
type FaceDetection struct {
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`

	// composite quality in [0,1]; computed upstream from sharpness,
	// brightness, size and aspect ratio
	Quality float64 `json:"quality"`

	Embedding []float32 `json:"embedding"`

	// EmotionStatus is "ok", "none" or "failed"; absence of emotion data is
	// never reported as a neutral emotion
	EmotionStatus string         `json:"emotion_status"`
	Emotion       *EmotionResult `json:"emotion,omitempty"`
}

// Validate checks a single detection before it enters the pipeline. A bad
// face is rejected on its own; it never fails the whole photo.
func (f *FaceDetection) Validate() error {
	if len(f.Embedding) == 0 {
		return fmt.Errorf("face has no embedding")
	}
	if len(f.Embedding) != EmbeddingDim {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(f.Embedding), EmbeddingDim)
	}
	if f.Quality < 0 || f.Quality > 1 {
		return fmt.Errorf("quality score %g outside [0,1]", f.Quality)
	}
	if f.Box.Right <= f.Box.Left || f.Box.Bottom <= f.Box.Top {
		return fmt.Errorf("degenerate bounding box %+v", f.Box)
	}
	switch f.EmotionStatus {
	case "ok", "none", "failed":
	default:
		return fmt.Errorf("unknown emotion status %q", f.EmotionStatus)
	}
	if f.EmotionStatus == "ok" && f.Emotion == nil {
		return fmt.Errorf("emotion status ok without emotion payload")
	}
	return nil
}

// ObjectDetection is one object found in the photo.
type ObjectDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

// SceneResult is the analyzer's whole-photo scene classification.
type SceneResult struct {
	SceneType    string `json:"scene_type"`    // indoor / outdoor
	LocationType string `json:"location_type"` // beach, office, home, ...
}

// Analysis is the full analyzer response for one photo.
type Analysis struct {
	Faces           []FaceDetection   `json:"faces"`
	Objects         []ObjectDetection `json:"objects"`
	Scene           *SceneResult      `json:"scene,omitempty"`
	Caption         string            `json:"caption"`
	DominantEmotion string            `json:"dominant_emotion"`
	MoodScore       float64           `json:"mood_score"`
	ClipEmbedding   []float32         `json:"clip_embedding,omitempty"`
}
