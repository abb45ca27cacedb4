package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFaceThumbsSubDir = "face_thumbnails"
	DefaultPhotosSubDir     = "photos"
)

const (
	defaultAnalysisQueueSize  = 200
	defaultNumAnalysisWorkers = 4

	// DBSCAN defaults calibrated against the analyzer's embedding space:
	// same-person pairs typically fall below 0.6, different-person pairs above.
	defaultClusterEps        = 0.6
	defaultClusterMinSamples = 1

	defaultThumbnailPadding = 40
	defaultThumbnailSize    = 200
)

// ClusteringConfig holds the density-clustering and thumbnail knobs. It can be
// overridden by the optional YAML config file.
type ClusteringConfig struct {
	Eps              float64 `yaml:"eps"`
	MinSamples       int     `yaml:"min_samples"`
	ThumbnailPadding int     `yaml:"thumbnail_padding"`
	ThumbnailSize    int     `yaml:"thumbnail_size"`
}

// MinIOConfig configures the optional object-storage backend for generated assets.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type Config struct {
	// source directory (where original user photos are scanned)
	RootDirectory string

	// sqlite database path
	DatabasePath string

	// optional Postgres DSN; when set, face embeddings are mirrored into a
	// pgvector table for ANN similarity queries
	PostgresDSN string

	// media storage configuration
	MediaStoragePath string // primary root for generated assets
	FaceThumbsPath   string // full-calculated path for person face thumbnails
	PhotosPath       string // full-calculated path for uploaded photos
	StorageBackend   string // "local" or "minio"
	MinIO            MinIOConfig

	// external vision analyzer service
	AnalyzerURL string

	// clustering + thumbnail settings
	Clustering ClusteringConfig

	// worker settings
	AnalysisQueueSize  int
	NumAnalysisWorkers int

	// path for the persisted face HNSW index ("" disables persistence)
	FaceIndexPath string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

// fileConfig mirrors the optional YAML config file layout.
type fileConfig struct {
	Clustering ClusteringConfig `yaml:"clustering"`
	MinIO      MinIOConfig      `yaml:"minio"`
}

// loadFileConfig reads the optional YAML config file pointed to by
// PHOTONEST_CONFIG. A missing file is not an error.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	fc := &fileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func LoadConfig() (Config, error) {
	root := getEnvOrDefault("ROOT_DIRECTORY", ".")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for root directory '%s': %w", root, err)
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "photonest.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	faceThumbsSubDir := getEnvOrDefault("FACE_THUMBNAILS_SUBDIR", DefaultFaceThumbsSubDir)
	absFaceThumbsPath := filepath.Join(absMediaStorage, faceThumbsSubDir)

	photosSubDir := getEnvOrDefault("PHOTOS_SUBDIR", DefaultPhotosSubDir)
	absPhotosPath := filepath.Join(absMediaStorage, photosSubDir)

	cfg := Config{
		RootDirectory:    absRoot,
		DatabasePath:     dbPath,
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		MediaStoragePath: absMediaStorage,
		FaceThumbsPath:   absFaceThumbsPath,
		PhotosPath:       absPhotosPath,
		StorageBackend:   getEnvOrDefault("STORAGE_BACKEND", "local"),
		AnalyzerURL:      getEnvOrDefault("ANALYZER_URL", "http://localhost:5100"),
		Clustering: ClusteringConfig{
			Eps:              getEnvFloatOrDefault("CLUSTER_EPS", defaultClusterEps),
			MinSamples:       getEnvIntOrDefault("CLUSTER_MIN_SAMPLES", defaultClusterMinSamples),
			ThumbnailPadding: getEnvIntOrDefault("FACE_THUMBNAIL_PADDING", defaultThumbnailPadding),
			ThumbnailSize:    getEnvIntOrDefault("FACE_THUMBNAIL_SIZE", defaultThumbnailSize),
		},
		AnalysisQueueSize:  getEnvIntOrDefault("ANALYSIS_QUEUE_SIZE", defaultAnalysisQueueSize),
		NumAnalysisWorkers: getEnvIntOrDefault("NUM_ANALYSIS_WORKERS", defaultNumAnalysisWorkers),
		FaceIndexPath:      os.Getenv("FACE_INDEX_PATH"),
	}

	// the YAML file, when present, fills in sections the environment left at
	// defaults; explicit env vars still win
	if cfgFile := os.Getenv("PHOTONEST_CONFIG"); cfgFile != "" {
		fc, err := loadFileConfig(cfgFile)
		if err != nil {
			return Config{}, err
		}
		if fc != nil {
			applyFileConfig(&cfg, fc)
			log.Printf("Loaded config overrides from %s", cfgFile)
		}
	}

	return cfg, nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if os.Getenv("CLUSTER_EPS") == "" && fc.Clustering.Eps > 0 {
		cfg.Clustering.Eps = fc.Clustering.Eps
	}
	if os.Getenv("CLUSTER_MIN_SAMPLES") == "" && fc.Clustering.MinSamples > 0 {
		cfg.Clustering.MinSamples = fc.Clustering.MinSamples
	}
	if os.Getenv("FACE_THUMBNAIL_PADDING") == "" && fc.Clustering.ThumbnailPadding > 0 {
		cfg.Clustering.ThumbnailPadding = fc.Clustering.ThumbnailPadding
	}
	if os.Getenv("FACE_THUMBNAIL_SIZE") == "" && fc.Clustering.ThumbnailSize > 0 {
		cfg.Clustering.ThumbnailSize = fc.Clustering.ThumbnailSize
	}
	if fc.MinIO.Endpoint != "" {
		cfg.MinIO = fc.MinIO
	}
}
