package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/photonest/photonestbackend/media"
	"github.com/photonest/photonestbackend/models"
)

type stubPhotoRepo struct {
	photos []models.Photo
}

func (r *stubPhotoRepo) Create(*models.Photo) error                   { return nil }
func (r *stubPhotoRepo) GetByID(string) (*models.Photo, error)        { return nil, nil }
func (r *stubPhotoRepo) GetByPath(string) (*models.Photo, error)      { return nil, nil }
func (r *stubPhotoRepo) GetByFileName(string) (*models.Photo, error)  { return nil, nil }
func (r *stubPhotoRepo) ListAll() ([]models.Photo, error)             { return r.photos, nil }
func (r *stubPhotoRepo) ListUnanalyzed() ([]models.Photo, error)      { return nil, nil }
func (r *stubPhotoRepo) SetAnalysisResult(string, int64, error) error { return nil }
func (r *stubPhotoRepo) UpdateMetadata(*models.Photo) error           { return nil }
func (r *stubPhotoRepo) ReplaceObjects(string, []models.DetectedObject) error { return nil }
func (r *stubPhotoRepo) Delete(string) error                          { return nil }

func TestListPhotosNaturalOrder(t *testing.T) {
	repo := &stubPhotoRepo{photos: []models.Photo{
		{ID: "a", FileName: "IMG_10.jpg"},
		{ID: "b", FileName: "IMG_2.jpg"},
		{ID: "c", FileName: "IMG_1.jpg"},
	}}
	handler := &PhotoHandler{Repo: repo}

	rec := httptest.NewRecorder()
	handler.ListPhotos(rec, httptest.NewRequest(http.MethodGet, "/api/photos", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []models.Photo
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := []string{"IMG_1.jpg", "IMG_2.jpg", "IMG_10.jpg"}
	if len(got) != len(want) {
		t.Fatalf("expected %d photos, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].FileName != name {
			t.Errorf("position %d: got %s, want %s", i, got[i].FileName, name)
		}
	}
}

type stubStore struct {
	objects map[string][]byte
}

func (s *stubStore) Save(media.AssetType, string, io.Reader) (string, error) { return "", nil }
func (s *stubStore) Get(relativePath string) (io.ReadCloser, int64, error) {
	data, ok := s.objects[relativePath]
	if !ok {
		return nil, 0, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}
func (s *stubStore) Delete(string) error { return nil }

func TestAssetServerServesStoredObject(t *testing.T) {
	store := &stubStore{objects: map[string][]byte{
		"face_thumbnails/abc.jpg": []byte("jpeg-bytes"),
	}}

	r := chi.NewRouter()
	r.Get("/api/assets/*", AssetServer(store))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/face_thumbnails/abc.jpg", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("unexpected content type: %q", ct)
	}
}

func TestAssetServerRejectsTraversal(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/assets/*", AssetServer(&stubStore{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/assets/../../etc/passwd", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for traversal attempt, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/missing.jpg", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing asset, got %d", rec.Code)
	}
}
