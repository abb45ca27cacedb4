package cluster

import (
	"math"
	"testing"
)

func TestEuclidean(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"pythagorean", []float32{0, 0}, []float32{3, 4}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Euclidean(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestEuclideanSymmetric(t *testing.T) {
	a := []float32{0.1, 0.7, -0.3, 2.5}
	b := []float32{1.4, -0.2, 0.9, 0.0}
	ab, err := Euclidean(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, err := Euclidean(b, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ab != ba {
		t.Errorf("distance not symmetric: %g vs %g", ab, ba)
	}
}

func TestEuclideanRejectsBadInput(t *testing.T) {
	if _, err := Euclidean(nil, []float32{1}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := Euclidean([]float32{1, 2}, []float32{1, 2, 3}); err == nil {
		t.Error("expected error for dimensionality mismatch")
	}
}

func TestCentroid(t *testing.T) {
	got := Centroid([][]float32{{0, 0}, {2, 4}, {4, 8}})
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("unexpected centroid %v", got)
	}
}

func TestCentroidSkipsMismatchedDims(t *testing.T) {
	got := Centroid([][]float32{{0, 0}, {1, 2, 3}, {2, 4}})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("unexpected centroid %v", got)
	}
}

func TestCentroidEmpty(t *testing.T) {
	if got := Centroid(nil); got != nil {
		t.Errorf("expected nil centroid, got %v", got)
	}
}
