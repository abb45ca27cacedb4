package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/photonest/photonestbackend/cluster"
	"github.com/photonest/photonestbackend/config"
	"github.com/photonest/photonestbackend/database"
	"github.com/photonest/photonestbackend/identity"
	"github.com/photonest/photonestbackend/index"
	"github.com/photonest/photonestbackend/media"
	"github.com/photonest/photonestbackend/pipeline"
	"github.com/photonest/photonestbackend/realtime"
	"github.com/photonest/photonestbackend/repository"
	"github.com/photonest/photonestbackend/vision"
	"github.com/photonest/photonestbackend/workers"
)

// app bundles everything a command needs, wired once from the configuration.
type app struct {
	cfg config.Config
	db  *gorm.DB

	photos     *repository.PhotoRepository
	faces      *repository.FaceRepository
	embeddings *repository.FaceEmbeddingRepository
	persons    *repository.PersonRepository
	conflicts  *repository.ConflictRepository
	mirror     *repository.EmbeddingMirror

	store     media.Store
	processor *media.Processor
	faceIndex *index.FaceIndex
	hub       *realtime.Hub
	analysis  *workers.AnalysisProcessor
	runner    *pipeline.Runner
	ingestor  *pipeline.Ingestor
}

func buildApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	for _, p := range []string{cfg.MediaStoragePath, filepath.Dir(cfg.DatabasePath)} {
		if err := os.MkdirAll(p, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		db:         db,
		photos:     repository.NewPhotoRepository(db),
		faces:      repository.NewFaceRepository(db),
		embeddings: repository.NewFaceEmbeddingRepository(db),
		persons:    repository.NewPersonRepository(db),
		conflicts:  repository.NewConflictRepository(db),
	}

	a.store, err = buildStore(cfg)
	if err != nil {
		return nil, err
	}
	a.processor = media.NewProcessor(a.store)

	if cfg.PostgresDSN != "" {
		mirror, err := repository.NewEmbeddingMirror(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect pgvector mirror: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := mirror.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate pgvector mirror: %w", err)
		}
		a.mirror = mirror
		log.Printf("pgvector embedding mirror enabled")
	}

	a.faceIndex = index.NewFaceIndex()
	if err := a.loadFaceIndex(); err != nil {
		return nil, err
	}

	a.hub = realtime.NewHub()
	go a.hub.Run()

	analyzer := vision.NewClient(cfg.AnalyzerURL)
	a.analysis = workers.NewAnalysisProcessor(
		analyzer, a.store,
		a.photos, a.faces, a.embeddings,
		a.mirror, a.faceIndex, a.hub,
		cfg.AnalysisQueueSize, cfg.NumAnalysisWorkers,
	)

	registry := identity.NewRegistry(repository.NewIdentityStore(db))
	engine := cluster.NewEngine(cluster.Options{
		Eps:        cfg.Clustering.Eps,
		MinSamples: cfg.Clustering.MinSamples,
	})
	selector := cluster.NewSelector(cfg.Clustering.ThumbnailPadding, cfg.Clustering.ThumbnailSize)

	a.runner = pipeline.NewRunner(
		a.photos, a.faces, a.embeddings, a.persons, a.conflicts,
		registry, engine, selector,
		a.processor, a.analysis, a.hub,
	)
	a.ingestor = pipeline.NewIngestor(a.store, a.photos)

	return a, nil
}

func buildStore(cfg config.Config) (media.Store, error) {
	if cfg.StorageBackend == "minio" {
		store, err := media.NewMinIOStore(media.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio store: %w", err)
		}
		log.Printf("Using MinIO media store at %s", cfg.MinIO.Endpoint)
		return store, nil
	}

	subDirs := map[media.AssetType]string{
		media.AssetTypeOriginal:  filepath.Base(cfg.PhotosPath),
		media.AssetTypeFaceThumb: filepath.Base(cfg.FaceThumbsPath),
	}
	store, err := media.NewLocalStorage(cfg.MediaStoragePath, subDirs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}
	return store, nil
}

// loadFaceIndex restores the persisted HNSW graph when configured, falling
// back to a full rebuild from the stored embeddings.
func (a *app) loadFaceIndex() error {
	stored, err := a.embeddings.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load embeddings for face index: %w", err)
	}

	entries := make([]index.Entry, 0, len(stored))
	for i := range stored {
		entries = append(entries, index.Entry{
			FaceID:    stored[i].FaceID,
			PhotoID:   stored[i].PhotoID,
			Embedding: stored[i].GetEmbedding(),
		})
	}

	if path := a.cfg.FaceIndexPath; path != "" {
		if err := a.faceIndex.Load(path, entries); err == nil {
			log.Printf("Loaded face index from %s (%d faces)", path, a.faceIndex.Count())
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: failed to load face index from %s, rebuilding: %v", path, err)
		}
	}

	if err := a.faceIndex.Build(entries); err != nil {
		return fmt.Errorf("failed to build face index: %w", err)
	}
	log.Printf("Built face index with %d faces", a.faceIndex.Count())
	return nil
}

// close releases the app's long-lived resources.
func (a *app) close() {
	if a.analysis != nil {
		a.analysis.Stop()
	}
	if path := a.cfg.FaceIndexPath; path != "" && a.faceIndex.Count() > 0 {
		if err := a.faceIndex.Save(path); err != nil {
			log.Printf("Warning: failed to persist face index: %v", err)
		}
	}
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			log.Printf("Warning: failed to close pgvector mirror: %v", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
