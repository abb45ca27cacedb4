package cluster

// Member is one face belonging to a cluster, as seen by the selector. The
// quality score is the analyzer's precomputed composite; the selector only
// consumes it.
type Member struct {
	FaceID       uint
	PhotoID      string
	QualityScore float64
	Box          Box
	Embedding    []float32
}

// Box is a face bounding box in source-image pixel coordinates.
type Box struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Selection is the outcome of representative selection for one cluster.
type Selection struct {
	Representative Member
	// Centroid of all member embeddings, kept as a secondary comparison
	// signal next to the quality-picked face.
	Centroid  []float64
	Directive ThumbnailDirective
}

// Selector picks the best face of a cluster for display.
type Selector struct {
	padding    int
	targetSize int
}

// NewSelector creates a selector with the given thumbnail padding and target
// square size in pixels.
func NewSelector(padding, targetSize int) *Selector {
	if padding < 0 {
		padding = 0
	}
	if targetSize <= 0 {
		targetSize = 200
	}
	return &Selector{padding: padding, targetSize: targetSize}
}

// Select returns the member with the strictly highest quality score, ties
// broken by the lowest face ID so repeated runs over reordered input pick the
// same face. Returns false when the cluster is empty.
func (s *Selector) Select(members []Member) (Selection, bool) {
	if len(members) == 0 {
		return Selection{}, false
	}

	best := members[0]
	for _, m := range members[1:] {
		if m.QualityScore > best.QualityScore {
			best = m
		} else if m.QualityScore == best.QualityScore && m.FaceID < best.FaceID {
			best = m
		}
	}

	embeddings := make([][]float32, 0, len(members))
	for _, m := range members {
		if len(m.Embedding) > 0 {
			embeddings = append(embeddings, m.Embedding)
		}
	}

	return Selection{
		Representative: best,
		Centroid:       Centroid(embeddings),
		Directive: ThumbnailDirective{
			PhotoID:    best.PhotoID,
			FaceID:     best.FaceID,
			Box:        best.Box,
			Padding:    s.padding,
			TargetSize: s.targetSize,
		},
	}, true
}
