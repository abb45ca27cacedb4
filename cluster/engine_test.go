package cluster

import (
	"reflect"
	"testing"
)

// vec builds a 4-dimensional embedding with the given first component; the
// remaining components are zero, so distances reduce to |a-b| on that axis.
func vec(x float32) []float32 {
	return []float32{x, 0, 0, 0}
}

func TestClusterEmptyInput(t *testing.T) {
	engine := NewEngine(DefaultOptions())
	labels, err := engine.Cluster(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("expected empty labels, got %v", labels)
	}
}

func TestClusterSingleFace(t *testing.T) {
	engine := NewEngine(Options{Eps: 0.6, MinSamples: 1})
	labels, err := engine.Cluster([][]float32{vec(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(labels) != 1 || labels[0] != 0 {
		t.Errorf("a lone face must form its own cluster, got %v", labels)
	}
}

func TestClusterTransitiveChain(t *testing.T) {
	// distance(A,B)=0.3, distance(B,C)=0.3, distance(A,C)=0.6+ — A and C
	// join through B even though they are not directly connected
	embeddings := [][]float32{vec(0.0), vec(0.3), vec(0.6)}

	engine := NewEngine(Options{Eps: 0.35, MinSamples: 1})
	labels, err := engine.Cluster(embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("expected one transitive cluster, got %v", labels)
	}
	if labels[0] == Noise {
		t.Errorf("chain must not be noise, got %v", labels)
	}
}

func TestClusterIsolatedFaceIsSingletonNotNoise(t *testing.T) {
	embeddings := [][]float32{vec(0.0), vec(0.1), vec(5.0)}

	engine := NewEngine(Options{Eps: 0.6, MinSamples: 1})
	labels, err := engine.Cluster(embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != labels[1] {
		t.Errorf("nearby faces must share a cluster, got %v", labels)
	}
	if labels[2] == Noise {
		t.Errorf("with min_samples=1 an isolated face is a singleton cluster, got %v", labels)
	}
	if labels[2] == labels[0] {
		t.Errorf("distant face must not join the pair, got %v", labels)
	}
}

func TestClusterNoiseWithMinSamplesTwo(t *testing.T) {
	embeddings := [][]float32{vec(0.0), vec(0.1), vec(5.0)}

	engine := NewEngine(Options{Eps: 0.6, MinSamples: 2})
	labels, err := engine.Cluster(embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != labels[1] || labels[0] == Noise {
		t.Errorf("pair must form a cluster, got %v", labels)
	}
	if labels[2] != Noise {
		t.Errorf("isolated face must be noise with min_samples=2, got %v", labels)
	}
}

func TestClusterDeterminism(t *testing.T) {
	embeddings := [][]float32{
		vec(0.0), vec(0.2), vec(1.0), vec(1.1), vec(3.0), vec(0.1), vec(1.05),
	}
	engine := NewEngine(Options{Eps: 0.3, MinSamples: 1})

	first, err := engine.Cluster(embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := engine.Cluster(embeddings)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("labels changed between runs: %v vs %v", first, again)
		}
	}
}

func TestClusterEpsMonotonicity(t *testing.T) {
	embeddings := [][]float32{
		vec(0.0), vec(0.25), vec(0.5), vec(1.5), vec(1.7), vec(4.0),
	}

	sizes := func(labels []int) map[int]int {
		out := make(map[int]int)
		for _, l := range labels {
			if l == Noise {
				continue
			}
			out[l]++
		}
		return out
	}

	var prevMax int
	for _, eps := range []float64{0.1, 0.3, 0.6, 1.5, 5.0} {
		engine := NewEngine(Options{Eps: eps, MinSamples: 1})
		labels, err := engine.Cluster(embeddings)
		if err != nil {
			t.Fatalf("eps=%g: unexpected error: %v", eps, err)
		}
		var maxSize int
		for _, s := range sizes(labels) {
			if s > maxSize {
				maxSize = s
			}
		}
		if maxSize < prevMax {
			t.Errorf("eps=%g: largest cluster shrank from %d to %d", eps, prevMax, maxSize)
		}
		prevMax = maxSize
	}
}

func TestClusterDuplicateEmbeddingsMerge(t *testing.T) {
	embeddings := [][]float32{vec(0.5), vec(0.5), vec(0.5)}

	engine := NewEngine(DefaultOptions())
	labels, err := engine.Cluster(embeddings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("identical embeddings must share a cluster, got %v", labels)
	}
}

func TestClusterDimensionMismatch(t *testing.T) {
	engine := NewEngine(DefaultOptions())
	_, err := engine.Cluster([][]float32{vec(0), {1, 2}})
	if err == nil {
		t.Fatal("expected error for mismatched dimensionality")
	}
}

func TestSummarize(t *testing.T) {
	stats := Summarize([]int{0, 0, 1, Noise, 2, Noise})
	if stats.Clusters != 3 {
		t.Errorf("expected 3 clusters, got %d", stats.Clusters)
	}
	if stats.Noise != 2 {
		t.Errorf("expected 2 noise points, got %d", stats.Noise)
	}
}
