package cluster

import (
	"fmt"
	"log"
)

// Noise is the label assigned to points reachable from no core point.
const Noise = -1

// Options configures a clustering run.
type Options struct {
	// Eps is the maximum embedding distance for two faces to be considered
	// directly connected.
	Eps float64
	// MinSamples is the neighborhood size (counting the point itself)
	// required for a point to be a core point. With MinSamples = 1 every
	// point is a core point and clusters are plain distance-connected
	// components; an isolated face becomes its own one-element cluster.
	MinSamples int
}

// DefaultOptions mirrors the recognized configuration defaults.
func DefaultOptions() Options {
	return Options{Eps: 0.6, MinSamples: 1}
}

// Engine runs density-based clustering (DBSCAN) over a batch of face
// embeddings. Labels are deterministic for a fixed input order but carry no
// meaning across runs; the identity registry maps them onto stable persons.
type Engine struct {
	opts Options
}

// NewEngine creates a clustering engine. Invalid options fall back to the
// defaults.
func NewEngine(opts Options) *Engine {
	if opts.Eps <= 0 {
		opts.Eps = DefaultOptions().Eps
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultOptions().MinSamples
	}
	return &Engine{opts: opts}
}

// Options returns the engine's effective configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// Cluster assigns a label to every input embedding: a non-negative cluster
// index, or Noise. All embeddings must share the same dimensionality; the
// caller is expected to have rejected malformed vectors already, so a
// mismatch here is an error for the whole batch.
func (e *Engine) Cluster(embeddings [][]float32) ([]int, error) {
	n := len(embeddings)
	if n == 0 {
		return []int{}, nil
	}

	dim := len(embeddings[0])
	for i, emb := range embeddings {
		if len(emb) != dim {
			return nil, fmt.Errorf("embedding %d has dimensionality %d, expected %d", i, len(emb), dim)
		}
	}

	log.Printf("cluster: clustering %d faces with eps=%g min_samples=%d", n, e.opts.Eps, e.opts.MinSamples)

	neighbors, err := e.buildNeighborhoods(embeddings)
	if err != nil {
		return nil, err
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	// classic DBSCAN: expand each unvisited core point into a cluster via
	// breadth-first transitive closure over core points; border points join
	// the first cluster that reaches them
	visited := make([]bool, n)
	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		if len(neighbors[i]) < e.opts.MinSamples {
			continue // noise unless later claimed as a border point
		}

		label := next
		next++
		labels[i] = label

		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == Noise {
				labels[j] = label // border point claimed by this cluster
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			labels[j] = label

			if len(neighbors[j]) >= e.opts.MinSamples {
				queue = append(queue, neighbors[j]...)
			}
		}
	}

	return labels, nil
}

// buildNeighborhoods computes, for every point, the indices within Eps of it
// (including itself). Pairwise distances are symmetric, so each pair is
// evaluated once.
func (e *Engine) buildNeighborhoods(embeddings [][]float32) ([][]int, error) {
	n := len(embeddings)
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		neighbors[i] = append(neighbors[i], i)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := Euclidean(embeddings[i], embeddings[j])
			if err != nil {
				return nil, err
			}
			if d <= e.opts.Eps {
				neighbors[i] = append(neighbors[i], j)
				neighbors[j] = append(neighbors[j], i)
			}
		}
	}
	return neighbors, nil
}

// Stats summarizes a label assignment.
type Stats struct {
	Clusters int
	Noise    int
}

// Summarize counts distinct clusters and noise points in a label slice.
func Summarize(labels []int) Stats {
	seen := make(map[int]bool)
	var noise int
	for _, l := range labels {
		if l == Noise {
			noise++
			continue
		}
		seen[l] = true
	}
	return Stats{Clusters: len(seen), Noise: noise}
}
