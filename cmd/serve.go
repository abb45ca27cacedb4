package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/photonest/photonestbackend/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the PhotoNest API server. Photos are uploaded over HTTP, analyzed
by the configured vision service, and clustered into person identities by
triggering processing runs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for search: %w", err)
	}

	photoHandler := &handlers.PhotoHandler{Repo: a.photos, Ingestor: a.ingestor, Store: a.store, SearchDB: sqlDB}
	personHandler := &handlers.PersonHandler{Persons: a.persons, Faces: a.faces}
	faceHandler := &handlers.FaceHandler{Faces: a.faces, Embeddings: a.embeddings, Index: a.faceIndex}
	runHandler := &handlers.RunHandler{Runner: a.runner}
	conflictHandler := &handlers.ConflictHandler{Conflicts: a.conflicts, Persons: a.persons}

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if os.Getenv("CORS_ALLOWED_ORIGINS") == "" {
		corsOptions.AllowedOrigins = []string{"http://localhost:5173"}
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/photos", func(r chi.Router) {
			r.Post("/", photoHandler.UploadPhoto)
			r.Get("/", photoHandler.ListPhotos)
			r.Get("/search", photoHandler.SearchPhotos)
			r.Route("/{photo_id}", func(r chi.Router) {
				r.Get("/", photoHandler.GetPhoto)
				r.Delete("/", photoHandler.DeletePhoto)
			})
		})

		r.Route("/people", func(r chi.Router) {
			r.Get("/", personHandler.ListPeople)
			r.Route("/{person_id}", func(r chi.Router) {
				r.Get("/", personHandler.GetPerson)
				r.Put("/", personHandler.RenamePerson)
				r.Delete("/", personHandler.DeletePerson)
				r.Get("/photos", personHandler.ListPersonPhotos)
			})
		})

		r.Route("/faces", func(r chi.Router) {
			r.Route("/{face_id}", func(r chi.Router) {
				r.Get("/", faceHandler.GetFace)
				r.Get("/similar", faceHandler.GetSimilarFaces)
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", runHandler.StartRun)
			r.Get("/latest", runHandler.GetLatestRun)
		})

		r.Route("/conflicts", func(r chi.Router) {
			r.Get("/", conflictHandler.ListConflicts)
			r.Post("/{conflict_id}/resolve", conflictHandler.ResolveConflict)
		})

		r.Get("/assets/*", handlers.AssetServer(a.store))
	})

	r.Get("/ws", a.hub.ServeWS)
	r.Handle("/metrics", promhttp.Handler())

	port, _ := cmd.Flags().GetString("port")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port

	log.Printf("Using database: %s", a.cfg.DatabasePath)
	log.Printf("Analyzer service: %s", a.cfg.AnalyzerURL)
	log.Printf("Server listening on %s", serverAddr)

	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return server.ListenAndServe()
}
