package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/photonest/photonestbackend/pipeline"
)

type RunHandler struct {
	Runner *pipeline.Runner
}

// StartRun kicks off a processing run in the background. Only one run may be
// active; a second request gets 409.
func (rh *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	if rh.Runner.Running() {
		WriteAPIError(w, http.StatusConflict, "conflict", "A processing run is already in progress")
		return
	}

	go func() {
		// the run outlives the HTTP request
		if _, err := rh.Runner.Run(context.Background()); err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				return
			}
			log.Printf("Background processing run failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Processing run started"})
}

// GetLatestRun returns the report of the most recent run.
func (rh *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	report := rh.Runner.LastReport()
	if report == nil {
		WriteAPIError(w, http.StatusNotFound, "not_found", "No run has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
