package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/photonest/photonestbackend/media"
	"github.com/photonest/photonestbackend/models"
	"github.com/photonest/photonestbackend/pipeline"
	"github.com/photonest/photonestbackend/repository"
	"github.com/photonest/photonestbackend/search"
)

// maxUploadSize bounds multipart photo uploads
const maxUploadSize = 64 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

type PhotoHandler struct {
	Repo     repository.PhotoRepositoryInterface
	Ingestor *pipeline.Ingestor
	Store    media.Store
	SearchDB *sql.DB
}

// UploadPhoto accepts one multipart image under the "file" field, stores it,
// and registers a photo record. Analysis happens on the next processing run.
func (ph *PhotoHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form: " + err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Missing required field: file")
		return
	}
	defer file.Close()

	photo, err := ph.Ingestor.Ingest(header.Filename, file)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnsupportedFormat) {
			WriteAPIError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Unsupported image format")
			return
		}
		log.Printf("Error ingesting photo '%s': %v", header.Filename, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to store photo")
		return
	}

	writeJSON(w, http.StatusCreated, photo)
}

// ListPhotos returns all photos in natural filename order, so IMG_2 sorts
// before IMG_10.
func (ph *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := ph.Repo.ListAll()
	if err != nil {
		log.Printf("Error listing photos: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve photos")
		return
	}

	sort.SliceStable(photos, func(i, j int) bool {
		return natsort.Compare(photos[i].FileName, photos[j].FileName)
	})

	if photos == nil {
		photos = []models.Photo{}
	}
	writeJSON(w, http.StatusOK, photos)
}

func (ph *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photo_id")

	photo, err := ph.Repo.GetByID(photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Photo not found")
		} else {
			log.Printf("Error getting photo %s: %v", photoID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve photo")
		}
		return
	}

	writeJSON(w, http.StatusOK, photo)
}

// DeletePhoto removes the photo record and its stored bytes. Faces and
// objects go with the record via the cascade.
func (ph *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photo_id")

	photo, err := ph.Repo.GetByID(photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Photo not found")
		} else {
			log.Printf("Error getting photo %s before delete: %v", photoID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve photo")
		}
		return
	}

	if err := ph.Repo.Delete(photoID); err != nil {
		log.Printf("Error deleting photo %s: %v", photoID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to delete photo")
		return
	}

	if err := ph.Store.Delete(photo.Path); err != nil {
		// the record is gone; log the orphaned object and move on
		log.Printf("Error deleting stored object %s for photo %s: %v", photo.Path, photoID, err)
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// SearchPhotos filters photos by the query parameters season, time_of_day,
// emotion, scene_type and person_id.
func (ph *PhotoHandler) SearchPhotos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := search.Filters{
		Season:    q.Get("season"),
		TimeOfDay: q.Get("time_of_day"),
		Emotion:   q.Get("emotion"),
		SceneType: q.Get("scene_type"),
	}

	if pidStr := q.Get("person_id"); pidStr != "" {
		pid, err := strconv.ParseUint(pidStr, 10, 64)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid person_id format")
			return
		}
		filters.PersonID = uint(pid)
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.ParseUint(limitStr, 10, 64)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid limit format")
			return
		}
		filters.Limit = limit
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.ParseUint(offsetStr, 10, 64)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid offset format")
			return
		}
		filters.Offset = offset
	}

	results, err := search.Photos(ph.SearchDB, filters)
	if err != nil {
		log.Printf("Error searching photos: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to search photos")
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}
