package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/photonest/photonestbackend/models"
	"github.com/photonest/photonestbackend/repository"
)

type ConflictHandler struct {
	Conflicts repository.ConflictRepositoryInterface
	Persons   repository.PersonRepositoryInterface
}

// conflictView is a MergeConflict with the person ID list decoded for the
// client.
type conflictView struct {
	models.MergeConflict
	PersonIDs []uint `json:"person_ids"`
}

// ListConflicts returns all unresolved merge conflicts.
func (ch *ConflictHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := ch.Conflicts.ListOpen()
	if err != nil {
		log.Printf("Error listing merge conflicts: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve conflicts")
		return
	}

	views := make([]conflictView, 0, len(conflicts))
	for i := range conflicts {
		ids, err := conflicts[i].PersonIDs()
		if err != nil {
			log.Printf("Error decoding conflict %d: %v", conflicts[i].ID, err)
			continue
		}
		views = append(views, conflictView{MergeConflict: conflicts[i], PersonIDs: ids})
	}

	writeJSON(w, http.StatusOK, views)
}

// ResolveConflict closes a merge conflict. With merge=true the listed persons
// are merged into target_person_id; with merge=false the conflict is
// dismissed and the persons stay separate.
func (ch *ConflictHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "conflict_id")
	conflictID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid conflict ID format")
		return
	}

	var req struct {
		Merge          bool `json:"merge"`
		TargetPersonID uint `json:"target_person_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: " + err.Error())
		return
	}

	conflict, err := ch.Conflicts.GetByID(uint(conflictID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Conflict not found")
		} else {
			log.Printf("Error getting conflict %d: %v", conflictID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve conflict")
		}
		return
	}
	if conflict.Resolved {
		WriteAPIError(w, http.StatusConflict, "conflict", "Conflict is already resolved")
		return
	}

	if req.Merge {
		ids, err := conflict.PersonIDs()
		if err != nil {
			log.Printf("Error decoding conflict %d: %v", conflictID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to decode conflict")
			return
		}

		var sources []uint
		targetListed := false
		for _, id := range ids {
			if id == req.TargetPersonID {
				targetListed = true
				continue
			}
			sources = append(sources, id)
		}
		if !targetListed {
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "target_person_id is not part of this conflict")
			return
		}

		if err := ch.Persons.Merge(req.TargetPersonID, sources); err != nil {
			log.Printf("Error merging persons for conflict %d: %v", conflictID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to merge persons")
			return
		}
	}

	if err := ch.Conflicts.MarkResolved(uint(conflictID)); err != nil {
		log.Printf("Error marking conflict %d resolved: %v", conflictID, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to resolve conflict")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Conflict resolved",
		"merged":  req.Merge,
	})
}
