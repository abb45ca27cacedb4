package repository

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/photonest/photonestbackend/models"
	"gorm.io/gorm"
)

// PhotoRepository handles database operations for Photo entities
type PhotoRepository struct {
	DB *gorm.DB
}

// Ensure PhotoRepository implements PhotoRepositoryInterface
var _ PhotoRepositoryInterface = (*PhotoRepository)(nil)

// NewPhotoRepository creates a new instance of PhotoRepository
func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{DB: db}
}

// Create creates a new photo record in the database
func (r *PhotoRepository) Create(photo *models.Photo) error {
	now := time.Now().Unix()
	if photo.CreatedAt == 0 {
		photo.CreatedAt = now
	}
	if photo.UpdatedAt == 0 {
		photo.UpdatedAt = now
	}
	photo.Path = filepath.ToSlash(photo.Path)

	err := r.DB.Create(photo).Error
	if err != nil {
		return fmt.Errorf("failed to create photo %s: %w", photo.FileName, err)
	}
	return nil
}

// GetByID retrieves a photo by its ID, preloading Faces and Objects
func (r *PhotoRepository) GetByID(id string) (*models.Photo, error) {
	var photo models.Photo
	err := r.DB.Preload("Faces").Preload("Objects").Where("id = ?", id).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get photo by ID %s: %w", id, err)
	}
	return &photo, nil
}

// GetByPath retrieves a photo by its storage path
func (r *PhotoRepository) GetByPath(path string) (*models.Photo, error) {
	var photo models.Photo
	err := r.DB.Where("path = ?", filepath.ToSlash(path)).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get photo by path %s: %w", path, err)
	}
	return &photo, nil
}

// GetByFileName retrieves the first photo registered under an original file
// name
func (r *PhotoRepository) GetByFileName(fileName string) (*models.Photo, error) {
	var photo models.Photo
	err := r.DB.Where("file_name = ?", fileName).First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get photo by file name %s: %w", fileName, err)
	}
	return &photo, nil
}

// ListAll retrieves all photos ordered by file name
func (r *PhotoRepository) ListAll() ([]models.Photo, error) {
	var photos []models.Photo
	err := r.DB.Order("file_name ASC").Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}

// ListUnanalyzed retrieves photos that have not been through the vision
// pipeline yet
func (r *PhotoRepository) ListUnanalyzed() ([]models.Photo, error) {
	var photos []models.Photo
	err := r.DB.Where("analyzed_at IS NULL").Order("created_at ASC").Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unanalyzed photos: %w", err)
	}
	return photos, nil
}

// SetAnalysisResult records the outcome of a vision analysis pass
func (r *PhotoRepository) SetAnalysisResult(id string, analyzedAt int64, analysisErr error) error {
	updates := map[string]interface{}{
		"analyzed_at":    analyzedAt,
		"analysis_error": nil,
		"updated_at":     time.Now().Unix(),
	}
	if analysisErr != nil {
		msg := analysisErr.Error()
		updates["analysis_error"] = &msg
	}

	result := r.DB.Model(&models.Photo{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set analysis result for photo %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateMetadata writes the analyzer and EXIF derived fields of a photo
func (r *PhotoRepository) UpdateMetadata(photo *models.Photo) error {
	photo.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Photo{}).Where("id = ?", photo.ID).Updates(map[string]interface{}{
		"camera_make":      photo.CameraMake,
		"camera_model":     photo.CameraModel,
		"taken_at":         photo.TakenAt,
		"gps_latitude":     photo.GPSLatitude,
		"gps_longitude":    photo.GPSLongitude,
		"width":            photo.Width,
		"height":           photo.Height,
		"season":           photo.Season,
		"time_of_day":      photo.TimeOfDay,
		"scene_type":       photo.SceneType,
		"location_type":    photo.LocationType,
		"dominant_emotion": photo.DominantEmotion,
		"mood_score":       photo.MoodScore,
		"caption":          photo.Caption,
		"clip_embedding":   photo.ClipEmbedding,
		"updated_at":       photo.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update metadata for photo %s: %w", photo.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceObjects swaps the detected-object rows of a photo for the latest
// analysis result
func (r *PhotoRepository) ReplaceObjects(photoID string, objects []models.DetectedObject) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", photoID).Delete(&models.DetectedObject{}).Error; err != nil {
			return fmt.Errorf("failed to clear objects for photo %s: %w", photoID, err)
		}
		now := time.Now().Unix()
		for i := range objects {
			objects[i].PhotoID = photoID
			if objects[i].CreatedAt == 0 {
				objects[i].CreatedAt = now
			}
		}
		if len(objects) == 0 {
			return nil
		}
		if err := tx.Create(&objects).Error; err != nil {
			return fmt.Errorf("failed to store objects for photo %s: %w", photoID, err)
		}
		return nil
	})
}

// Delete removes a photo together with everything derived from it: faces,
// embeddings, detected objects and photo links, all hard-deleted in one
// transaction. Persons that lose member faces get their representative,
// face count and photo links recomputed so none of them keeps pointing at a
// removed face or photo.
func (r *PhotoRepository) Delete(id string) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var photo models.Photo
		if err := tx.Where("id = ?", id).First(&photo).Error; err != nil {
			return err
		}

		var personIDs []uint
		if err := tx.Model(&models.Face{}).
			Where("photo_id = ? AND person_id IS NOT NULL", id).
			Distinct().Pluck("person_id", &personIDs).Error; err != nil {
			return fmt.Errorf("failed to list affected persons: %w", err)
		}

		if err := tx.Unscoped().Where("photo_id = ?", id).Delete(&models.FaceEmbedding{}).Error; err != nil {
			return fmt.Errorf("failed to delete embeddings: %w", err)
		}
		if err := tx.Unscoped().Where("photo_id = ?", id).Delete(&models.Face{}).Error; err != nil {
			return fmt.Errorf("failed to delete faces: %w", err)
		}
		if err := tx.Where("photo_id = ?", id).Delete(&models.DetectedObject{}).Error; err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}
		if err := tx.Where("photo_id = ?", id).Delete(&models.PhotoPerson{}).Error; err != nil {
			return fmt.Errorf("failed to delete photo links: %w", err)
		}
		if err := tx.Unscoped().Where("id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return fmt.Errorf("failed to delete photo row: %w", err)
		}

		for _, personID := range personIDs {
			if err := refreshPersonDerived(tx, personID); err != nil {
				return fmt.Errorf("failed to refresh person %d: %w", personID, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("failed to delete photo %s: %w", id, err)
	}
	return nil
}
