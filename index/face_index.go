package index

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

// maxNeighbors is the HNSW M parameter.
const maxNeighbors = 16

// Entry is one face embedding registered in the index.
type Entry struct {
	FaceID    uint
	PhotoID   string
	Embedding []float32
}

// FaceIndex is an in-memory HNSW graph over face embeddings, used to answer
// "similar faces" queries without scanning every stored vector. It is a
// lookup accelerator only; the clustering pipeline computes its own exact
// distances.
type FaceIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint]
	entries map[uint]Entry
}

// NewFaceIndex creates an empty face index.
func NewFaceIndex() *FaceIndex {
	return &FaceIndex{entries: make(map[uint]Entry)}
}

func newGraph() *hnsw.Graph[uint] {
	g := hnsw.NewGraph[uint]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given entries.
func (fi *FaceIndex) Build(entries []Entry) error {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	fi.graph = newGraph()
	fi.entries = make(map[uint]Entry, len(entries))
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		fi.graph.Add(hnsw.MakeNode(e.FaceID, e.Embedding))
		fi.entries[e.FaceID] = e
	}
	return nil
}

// Add inserts or replaces one face in the index.
func (fi *FaceIndex) Add(e Entry) {
	if len(e.Embedding) == 0 {
		return
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()
	if fi.graph == nil {
		fi.graph = newGraph()
	}
	fi.graph.Add(hnsw.MakeNode(e.FaceID, e.Embedding))
	fi.entries[e.FaceID] = e
}

// Remove drops a face from the index.
func (fi *FaceIndex) Remove(faceID uint) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if fi.graph != nil {
		fi.graph.Delete(faceID)
	}
	delete(fi.entries, faceID)
}

// Search returns up to k entries closest to the query embedding, with their
// distances, nearest first.
func (fi *FaceIndex) Search(query []float32, k int) ([]Entry, []float32, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if fi.graph == nil {
		return nil, nil, errors.New("face index not built")
	}

	neighbors := fi.graph.Search(query, k)
	results := make([]Entry, 0, len(neighbors))
	distances := make([]float32, 0, len(neighbors))
	for _, n := range neighbors {
		e, ok := fi.entries[n.Key]
		if !ok {
			continue
		}
		results = append(results, e)
		distances = append(distances, hnsw.EuclideanDistance(query, n.Value))
	}
	return results, distances, nil
}

// Count returns the number of indexed faces.
func (fi *FaceIndex) Count() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.entries)
}

// Save writes the graph to disk so a restart can skip rebuilding.
func (fi *FaceIndex) Save(path string) error {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if fi.graph == nil {
		return errors.New("face index not built")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file %s: %w", path, err)
	}
	defer file.Close()

	if err := fi.graph.Export(file); err != nil {
		return fmt.Errorf("failed to export face index: %w", err)
	}
	return nil
}

// Load restores a previously saved graph. Entries must be supplied alongside
// because the graph stores only keys and vectors.
func (fi *FaceIndex) Load(path string, entries []Entry) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open index file %s: %w", path, err)
	}
	defer file.Close()

	g := newGraph()
	if err := g.Import(file); err != nil {
		return fmt.Errorf("failed to import face index: %w", err)
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.graph = g
	fi.entries = make(map[uint]Entry, len(entries))
	for _, e := range entries {
		fi.entries[e.FaceID] = e
	}
	return nil
}
