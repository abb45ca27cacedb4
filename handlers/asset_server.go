package handlers

import (
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/photonest/photonestbackend/media"
)

// AssetServer creates a handler that streams stored media through the
// configured store, so it works for both local and MinIO backends.
// example usage:
//
//	r.Get("/api/assets/*", AssetServer(store))
//
// where the wildcard carries the store-relative path of the asset.
func AssetServer(store media.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := chi.URLParam(r, "*")

		if relativePath == "" || strings.Contains(relativePath, "..") {
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}

		reader, size, err := store.Get(relativePath)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer reader.Close()

		if contentType := mime.TypeByExtension(filepath.Ext(relativePath)); contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		if size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}
		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		if _, err := io.Copy(w, reader); err != nil {
			log.Printf("Error streaming asset %s: %v", relativePath, err)
		}
	}
}
