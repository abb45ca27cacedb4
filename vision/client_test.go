package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func validFace() FaceDetection {
	return FaceDetection{
		Box:           BoundingBox{Top: 10, Right: 100, Bottom: 110, Left: 20},
		Confidence:    0.98,
		Quality:       0.7,
		Embedding:     make([]float32, EmbeddingDim),
		EmotionStatus: "none",
	}
}

func TestFaceDetectionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *FaceDetection)
		wantErr bool
	}{
		{"valid", func(f *FaceDetection) {}, false},
		{"missing embedding", func(f *FaceDetection) { f.Embedding = nil }, true},
		{"wrong dimensionality", func(f *FaceDetection) { f.Embedding = make([]float32, 64) }, true},
		{"quality above one", func(f *FaceDetection) { f.Quality = 1.5 }, true},
		{"negative quality", func(f *FaceDetection) { f.Quality = -0.1 }, true},
		{"inverted box", func(f *FaceDetection) { f.Box = BoundingBox{Top: 100, Right: 20, Bottom: 10, Left: 100} }, true},
		{"unknown emotion status", func(f *FaceDetection) { f.EmotionStatus = "neutral" }, true},
		{"ok status without payload", func(f *FaceDetection) { f.EmotionStatus = "ok" }, true},
		{"ok status with payload", func(f *FaceDetection) {
			f.EmotionStatus = "ok"
			f.Emotion = &EmotionResult{Label: "happy", Confidence: 0.9, Valence: 0.8}
		}, false},
		{"failed status", func(f *FaceDetection) { f.EmotionStatus = "failed" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFace()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestClientAnalyze(t *testing.T) {
	want := Analysis{
		Faces:           []FaceDetection{validFace()},
		Caption:         "two people on a beach",
		DominantEmotion: "happy",
		MoodScore:       0.6,
		Scene:           &SceneResult{SceneType: "outdoor", LocationType: "beach"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("missing image part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	got, err := client.Analyze(context.Background(), "beach.jpg", strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Faces) != 1 {
		t.Fatalf("expected one face, got %d", len(got.Faces))
	}
	if got.Caption != want.Caption || got.DominantEmotion != want.DominantEmotion {
		t.Errorf("unexpected analysis: %+v", got)
	}
	if got.Scene == nil || got.Scene.LocationType != "beach" {
		t.Errorf("unexpected scene: %+v", got.Scene)
	}
}

func TestClientAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Analyze(context.Background(), "x.jpg", strings.NewReader("bytes"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry status code, got %v", err)
	}
}

func TestClientHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	if err := NewClient(server.URL).Healthy(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
