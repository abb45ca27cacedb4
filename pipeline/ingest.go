package pipeline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/photonest/photonestbackend/media"
	"github.com/photonest/photonestbackend/models"
	"github.com/photonest/photonestbackend/repository"
)

// ErrUnsupportedFormat is returned for uploads that are not images.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var supportedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Ingestor brings new photos into the system: the bytes go to the media
// store, the row goes to the database. Analysis happens later, in a run.
type Ingestor struct {
	store  media.Store
	photos repository.PhotoRepositoryInterface
}

// NewIngestor creates an ingestor.
func NewIngestor(store media.Store, photos repository.PhotoRepositoryInterface) *Ingestor {
	return &Ingestor{store: store, photos: photos}
}

// Ingest stores one photo and registers it. The photo gets a UUID identity;
// the stored object name carries that UUID so uploads can never collide.
func (in *Ingestor) Ingest(fileName string, data io.Reader) (*models.Photo, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	photoID := uuid.NewString()
	storedName := photoID + ext

	relPath, err := in.store.Save(media.AssetTypeOriginal, storedName, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo %s: %w", fileName, err)
	}

	photo := &models.Photo{
		ID:        photoID,
		FileName:  fileName,
		Path:      relPath,
		Season:    "unknown",
		TimeOfDay: "unknown",
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}
	if err := in.photos.Create(photo); err != nil {
		// roll back the stored object so a failed insert leaves nothing
		// behind
		if delErr := in.store.Delete(relPath); delErr != nil {
			return nil, fmt.Errorf("failed to register photo %s (and cleanup failed: %v): %w", fileName, delErr, err)
		}
		return nil, fmt.Errorf("failed to register photo %s: %w", fileName, err)
	}
	return photo, nil
}

// IngestIfNew ingests a photo unless one with the same original file name is
// already registered; used by the batch CLI to make re-runs idempotent. The
// caller passes the source-relative path as the file name.
func (in *Ingestor) IngestIfNew(fileName string, data io.Reader) (*models.Photo, bool, error) {
	existing, err := in.photos.GetByFileName(fileName)
	if err == nil && existing != nil {
		return existing, false, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	photo, err := in.Ingest(fileName, data)
	if err != nil {
		return nil, false, err
	}
	return photo, true, nil
}
