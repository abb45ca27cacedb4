package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/photonest/photonestbackend/models"
	"gorm.io/gorm"
)

// FaceEmbeddingRepository handles database operations for FaceEmbedding
// entities. The table is append-only; embeddings are written once per face
// by the vision pipeline and never mutated.
type FaceEmbeddingRepository struct {
	DB *gorm.DB
}

// Ensure FaceEmbeddingRepository implements FaceEmbeddingRepositoryInterface
var _ FaceEmbeddingRepositoryInterface = (*FaceEmbeddingRepository)(nil)

// NewFaceEmbeddingRepository creates a new instance of FaceEmbeddingRepository
func NewFaceEmbeddingRepository(db *gorm.DB) *FaceEmbeddingRepository {
	return &FaceEmbeddingRepository{DB: db}
}

// Create creates a new face embedding record in the database
func (r *FaceEmbeddingRepository) Create(embedding *models.FaceEmbedding) error {
	now := time.Now().Unix()
	if embedding.CreatedAt == 0 {
		embedding.CreatedAt = now
	}
	embedding.UpdatedAt = now

	err := r.DB.Create(embedding).Error
	if err != nil {
		return fmt.Errorf("failed to create face embedding for face ID %d: %w", embedding.FaceID, err)
	}
	return nil
}

// GetByFaceID retrieves a face embedding by its face ID
func (r *FaceEmbeddingRepository) GetByFaceID(faceID uint) (*models.FaceEmbedding, error) {
	var embedding models.FaceEmbedding
	err := r.DB.Where("face_id = ?", faceID).First(&embedding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get face embedding by face ID %d: %w", faceID, err)
	}
	return &embedding, nil
}

// ListAll retrieves every stored embedding ordered by face ID, so clustering
// batches assemble in a fixed order
func (r *FaceEmbeddingRepository) ListAll() ([]models.FaceEmbedding, error) {
	var embeddings []models.FaceEmbedding
	err := r.DB.Order("face_id ASC").Find(&embeddings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list face embeddings: %w", err)
	}
	return embeddings, nil
}

// Count returns the total number of stored embeddings
func (r *FaceEmbeddingRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&models.FaceEmbedding{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count face embeddings: %w", err)
	}
	return count, nil
}
