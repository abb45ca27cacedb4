package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/photonest/photonestbackend/models"
	"gorm.io/gorm"
)

// FaceRepository handles database operations for Face entities
type FaceRepository struct {
	DB *gorm.DB
}

// Ensure FaceRepository implements FaceRepositoryInterface
var _ FaceRepositoryInterface = (*FaceRepository)(nil)

// NewFaceRepository creates a new instance of FaceRepository
func NewFaceRepository(db *gorm.DB) *FaceRepository {
	return &FaceRepository{DB: db}
}

// Create creates a new face record in the database
func (r *FaceRepository) Create(face *models.Face) error {
	now := time.Now().Unix()
	if face.CreatedAt == 0 {
		face.CreatedAt = now
	}
	if face.UpdatedAt == 0 {
		face.UpdatedAt = now
	}
	if face.EmotionStatus == "" {
		face.EmotionStatus = models.EmotionStatusNone
	}

	err := r.DB.Create(face).Error
	if err != nil {
		return fmt.Errorf("failed to create face for photo %s: %w", face.PhotoID, err)
	}
	return nil
}

// GetByID retrieves a face by its ID, preloading its Photo
func (r *FaceRepository) GetByID(id uint) (*models.Face, error) {
	var face models.Face
	err := r.DB.Preload("Photo").First(&face, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get face by ID %d: %w", id, err)
	}
	return &face, nil
}

// ListByPhotoID retrieves all faces detected in one photo
func (r *FaceRepository) ListByPhotoID(photoID string) ([]models.Face, error) {
	var faces []models.Face
	err := r.DB.Where("photo_id = ?", photoID).Order("id ASC").Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list faces for photo %s: %w", photoID, err)
	}
	return faces, nil
}

// ListByPersonID retrieves all member faces of one person
func (r *FaceRepository) ListByPersonID(personID uint) ([]models.Face, error) {
	var faces []models.Face
	err := r.DB.Where("person_id = ?", personID).Order("id ASC").Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list faces for person %d: %w", personID, err)
	}
	return faces, nil
}

// ListAll retrieves every face, ordered by ID so batches assemble in a fixed
// order
func (r *FaceRepository) ListAll() ([]models.Face, error) {
	var faces []models.Face
	err := r.DB.Order("id ASC").Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list faces: %w", err)
	}
	return faces, nil
}

// Delete removes a face by its ID
func (r *FaceRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Face{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete face ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
