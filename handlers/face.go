package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/photonest/photonestbackend/index"
	"github.com/photonest/photonestbackend/repository"
)

// defaultSimilarLimit is how many neighbors a similarity query returns when
// the caller does not say.
const defaultSimilarLimit = 10

type FaceHandler struct {
	Faces      repository.FaceRepositoryInterface
	Embeddings repository.FaceEmbeddingRepositoryInterface
	Index      *index.FaceIndex
}

// SimilarFace is one neighbor in a similarity response.
type SimilarFace struct {
	FaceID   uint    `json:"face_id"`
	PhotoID  string  `json:"photo_id"`
	Distance float32 `json:"distance"`
}

func (fh *FaceHandler) GetFace(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "face_id")
	faceID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid face ID format")
		return
	}

	face, err := fh.Faces.GetByID(uint(faceID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Face not found")
		} else {
			log.Printf("Error getting face %d: %v", faceID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve face")
		}
		return
	}

	writeJSON(w, http.StatusOK, face)
}

// GetSimilarFaces answers "which faces look like this one" from the HNSW
// index. The queried face itself is excluded from the response.
func (fh *FaceHandler) GetSimilarFaces(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "face_id")
	faceID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid face ID format")
		return
	}

	limit := defaultSimilarLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid limit format")
			return
		}
		limit = parsed
	}

	embedding, err := fh.Embeddings.GetByFaceID(uint(faceID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Face not found")
		} else {
			log.Printf("Error loading embedding for face %d: %v", faceID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to load face embedding")
		}
		return
	}

	// ask for one extra so the face itself can be dropped
	entries, distances, err := fh.Index.Search(embedding.GetEmbedding(), limit+1)
	if err != nil {
		log.Printf("Error searching similar faces for %d: %v", faceID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to search similar faces")
		return
	}

	similar := make([]SimilarFace, 0, limit)
	for i, entry := range entries {
		if entry.FaceID == uint(faceID) {
			continue
		}
		similar = append(similar, SimilarFace{
			FaceID:   entry.FaceID,
			PhotoID:  entry.PhotoID,
			Distance: distances[i],
		})
		if len(similar) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"face_id": faceID, "similar": similar})
}
