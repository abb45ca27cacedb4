package cluster

import (
	"math/rand"
	"testing"
)

func testMembers() []Member {
	return []Member{
		{FaceID: 10, PhotoID: "p1", QualityScore: 0.42, Box: Box{Top: 10, Right: 60, Bottom: 70, Left: 20}},
		{FaceID: 11, PhotoID: "p2", QualityScore: 0.88, Box: Box{Top: 5, Right: 90, Bottom: 80, Left: 30}},
		{FaceID: 12, PhotoID: "p3", QualityScore: 0.61, Box: Box{Top: 0, Right: 50, Bottom: 40, Left: 10}},
	}
}

func TestSelectHighestQuality(t *testing.T) {
	selector := NewSelector(40, 200)
	sel, ok := selector.Select(testMembers())
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.Representative.FaceID != 11 {
		t.Errorf("expected face 11, got %d", sel.Representative.FaceID)
	}
	if sel.Directive.PhotoID != "p2" || sel.Directive.FaceID != 11 {
		t.Errorf("directive must point at the representative, got %+v", sel.Directive)
	}
	if sel.Directive.Padding != 40 || sel.Directive.TargetSize != 200 {
		t.Errorf("directive must carry configured padding and size, got %+v", sel.Directive)
	}
}

func TestSelectStableUnderReordering(t *testing.T) {
	selector := NewSelector(40, 200)
	members := testMembers()

	base, ok := selector.Select(members)
	if !ok {
		t.Fatal("expected a selection")
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Member(nil), members...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		sel, ok := selector.Select(shuffled)
		if !ok {
			t.Fatal("expected a selection")
		}
		if sel.Representative.FaceID != base.Representative.FaceID {
			t.Fatalf("representative changed under reordering: %d vs %d",
				sel.Representative.FaceID, base.Representative.FaceID)
		}
	}
}

func TestSelectTieBreaksOnLowestFaceID(t *testing.T) {
	members := []Member{
		{FaceID: 30, QualityScore: 0.7},
		{FaceID: 20, QualityScore: 0.7},
		{FaceID: 25, QualityScore: 0.7},
	}
	selector := NewSelector(40, 200)
	sel, ok := selector.Select(members)
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.Representative.FaceID != 20 {
		t.Errorf("tie must resolve to lowest face ID, got %d", sel.Representative.FaceID)
	}
}

func TestSelectEmptyCluster(t *testing.T) {
	selector := NewSelector(40, 200)
	if _, ok := selector.Select(nil); ok {
		t.Error("empty cluster must yield no selection")
	}
}

func TestSelectCentroid(t *testing.T) {
	members := []Member{
		{FaceID: 1, QualityScore: 0.5, Embedding: []float32{0, 0}},
		{FaceID: 2, QualityScore: 0.9, Embedding: []float32{2, 4}},
	}
	selector := NewSelector(40, 200)
	sel, ok := selector.Select(members)
	if !ok {
		t.Fatal("expected a selection")
	}
	if len(sel.Centroid) != 2 || sel.Centroid[0] != 1 || sel.Centroid[1] != 2 {
		t.Errorf("unexpected centroid %v", sel.Centroid)
	}
}

func TestCropRectPadsAndClamps(t *testing.T) {
	tests := []struct {
		name       string
		box        Box
		padding    int
		imgW, imgH int
		wantMinX   int
		wantMinY   int
		wantMaxX   int
		wantMaxY   int
	}{
		{
			name:    "interior box pads symmetrically",
			box:     Box{Top: 100, Right: 300, Bottom: 260, Left: 140},
			padding: 40, imgW: 1000, imgH: 800,
			wantMinX: 100, wantMinY: 60, wantMaxX: 340, wantMaxY: 300,
		},
		{
			name:    "box near origin clamps to zero",
			box:     Box{Top: 10, Right: 80, Bottom: 90, Left: 15},
			padding: 40, imgW: 1000, imgH: 800,
			wantMinX: 0, wantMinY: 0, wantMaxX: 120, wantMaxY: 130,
		},
		{
			name:    "box near far edge clamps to image size",
			box:     Box{Top: 700, Right: 990, Bottom: 790, Left: 920},
			padding: 40, imgW: 1000, imgH: 800,
			wantMinX: 880, wantMinY: 660, wantMaxX: 1000, wantMaxY: 800,
		},
		{
			name:    "zero padding keeps the raw box",
			box:     Box{Top: 50, Right: 150, Bottom: 120, Left: 70},
			padding: 0, imgW: 400, imgH: 300,
			wantMinX: 70, wantMinY: 50, wantMaxX: 150, wantMaxY: 120,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ThumbnailDirective{Box: tt.box, Padding: tt.padding, TargetSize: 200}
			r := d.CropRect(tt.imgW, tt.imgH)
			if r.Min.X != tt.wantMinX || r.Min.Y != tt.wantMinY ||
				r.Max.X != tt.wantMaxX || r.Max.Y != tt.wantMaxY {
				t.Errorf("got %v, want (%d,%d)-(%d,%d)", r,
					tt.wantMinX, tt.wantMinY, tt.wantMaxX, tt.wantMaxY)
			}
		})
	}
}

func TestCropRectOutOfBoundsBoxIsEmpty(t *testing.T) {
	d := ThumbnailDirective{
		Box:        Box{Top: 500, Right: 700, Bottom: 600, Left: 650},
		Padding:    0,
		TargetSize: 200,
	}
	if r := d.CropRect(320, 240); !r.Empty() {
		t.Errorf("expected empty rect for out-of-bounds box, got %v", r)
	}
}
