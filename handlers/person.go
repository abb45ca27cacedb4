package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/photonest/photonestbackend/models"
	"github.com/photonest/photonestbackend/repository"
)

type PersonHandler struct {
	Persons repository.PersonRepositoryInterface
	Faces   repository.FaceRepositoryInterface
}

func personIDParam(r *http.Request) (uint, error) {
	idStr := chi.URLParam(r, "person_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (ph *PersonHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := ph.Persons.ListAll()
	if err != nil {
		log.Printf("Error listing people: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve people")
		return
	}
	if people == nil {
		people = []models.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

// GetPerson returns one person with their member faces attached.
func (ph *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	personID, err := personIDParam(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid person ID format")
		return
	}

	person, err := ph.Persons.GetByID(personID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Person not found")
		} else {
			log.Printf("Error getting person %d: %v", personID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve person")
		}
		return
	}

	faces, err := ph.Faces.ListByPersonID(personID)
	if err != nil {
		log.Printf("Error fetching faces for person %d: %v", personID, err)
	} else {
		person.Faces = faces
	}

	writeJSON(w, http.StatusOK, person)
}

// RenamePerson changes a person's display name. Identity and membership are
// untouched.
func (ph *PersonHandler) RenamePerson(w http.ResponseWriter, r *http.Request) {
	personID, err := personIDParam(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid person ID format")
		return
	}

	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: " + err.Error())
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Missing required field: display_name")
		return
	}

	if err := ph.Persons.Rename(personID, strings.TrimSpace(req.DisplayName)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Person not found")
		} else {
			log.Printf("Error renaming person %d: %v", personID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to rename person")
		}
		return
	}

	person, err := ph.Persons.GetByID(personID)
	if err != nil {
		log.Printf("Error fetching renamed person %d: %v", personID, err)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Person renamed successfully"})
		return
	}
	writeJSON(w, http.StatusOK, person)
}

// DeletePerson removes a person. Their faces stay, detached, and may form a
// new person on the next run.
func (ph *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	personID, err := personIDParam(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid person ID format")
		return
	}

	if err := ph.Persons.Delete(personID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Person not found")
		} else {
			log.Printf("Error deleting person %d: %v", personID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to delete person")
		}
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// ListPersonPhotos returns the IDs of photos containing the person, from the
// derived photo links.
func (ph *PersonHandler) ListPersonPhotos(w http.ResponseWriter, r *http.Request) {
	personID, err := personIDParam(r)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid person ID format")
		return
	}

	if _, err := ph.Persons.GetByID(personID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Person not found")
		} else {
			log.Printf("Error checking person %d: %v", personID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to verify person")
		}
		return
	}

	photoIDs, err := ph.Persons.ListPhotoIDs(personID)
	if err != nil {
		log.Printf("Error listing photos for person %d: %v", personID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve person photos")
		return
	}
	if photoIDs == nil {
		photoIDs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"person_id": personID, "photo_ids": photoIDs})
}
