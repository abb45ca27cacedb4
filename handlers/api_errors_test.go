package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestErrorResponsesAreStandardized(t *testing.T) {
	handler := &PersonHandler{}

	r := chi.NewRouter()
	r.Get("/api/people/{person_id}", handler.GetPerson)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/people/not-a-number", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type: %q", ct)
	}

	var resp APIErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("expected one error entry, got %+v", resp.Errors)
	}
	if resp.Errors[0].Code != "invalid_request" {
		t.Errorf("unexpected error code %q", resp.Errors[0].Code)
	}
	if resp.Errors[0].Status != "400" {
		t.Errorf("unexpected error status %q", resp.Errors[0].Status)
	}
	if resp.Errors[0].Detail == "" {
		t.Error("error detail must not be empty")
	}
}
