package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/photonest/photonestbackend/models"
	"gorm.io/gorm"
)

// ConflictRepository handles database operations for MergeConflict entities
type ConflictRepository struct {
	DB *gorm.DB
}

// Ensure ConflictRepository implements ConflictRepositoryInterface
var _ ConflictRepositoryInterface = (*ConflictRepository)(nil)

// NewConflictRepository creates a new instance of ConflictRepository
func NewConflictRepository(db *gorm.DB) *ConflictRepository {
	return &ConflictRepository{DB: db}
}

// Create creates a new merge conflict record in the database
func (r *ConflictRepository) Create(conflict *models.MergeConflict) error {
	now := time.Now().Unix()
	if conflict.CreatedAt == 0 {
		conflict.CreatedAt = now
	}
	conflict.UpdatedAt = now

	err := r.DB.Create(conflict).Error
	if err != nil {
		return fmt.Errorf("failed to create merge conflict for run %s: %w", conflict.RunID, err)
	}
	return nil
}

// GetByID retrieves a merge conflict by its ID
func (r *ConflictRepository) GetByID(id uint) (*models.MergeConflict, error) {
	var conflict models.MergeConflict
	err := r.DB.First(&conflict, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get merge conflict by ID %d: %w", id, err)
	}
	return &conflict, nil
}

// ListOpen retrieves all unresolved merge conflicts, newest first
func (r *ConflictRepository) ListOpen() ([]models.MergeConflict, error) {
	var conflicts []models.MergeConflict
	err := r.DB.Where("resolved = ?", false).Order("created_at DESC").Find(&conflicts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open merge conflicts: %w", err)
	}
	return conflicts, nil
}

// MarkResolved flags a merge conflict as handled
func (r *ConflictRepository) MarkResolved(id uint) error {
	result := r.DB.Model(&models.MergeConflict{}).Where("id = ?", id).Updates(map[string]interface{}{
		"resolved":   true,
		"updated_at": time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve merge conflict ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
