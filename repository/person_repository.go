package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/photonest/photonestbackend/models"
	"gorm.io/gorm"
)

// PersonRepository handles database operations for Person entities
type PersonRepository struct {
	DB *gorm.DB
}

// Ensure PersonRepository implements PersonRepositoryInterface
var _ PersonRepositoryInterface = (*PersonRepository)(nil)

// NewPersonRepository creates a new instance of PersonRepository
func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{DB: db}
}

// Create creates a new person record. An empty DisplayName defaults to
// "Person <ID>" after the insert assigns the ID.
func (r *PersonRepository) Create(person *models.Person) error {
	now := time.Now().Unix()
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	if person.UpdatedAt == 0 {
		person.UpdatedAt = now
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(person).Error; err != nil {
			return err
		}
		if person.DisplayName == "" {
			person.DisplayName = fmt.Sprintf("Person %d", person.ID)
			return tx.Model(&models.Person{}).Where("id = ?", person.ID).
				Update("display_name", person.DisplayName).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

// GetByID retrieves a person by their ID, preloading member faces
func (r *PersonRepository) GetByID(id uint) (*models.Person, error) {
	var person models.Person
	err := r.DB.Preload("Faces").First(&person, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get person by ID %d: %w", id, err)
	}
	return &person, nil
}

// ListAll retrieves all people, ordered by display name
func (r *PersonRepository) ListAll() ([]models.Person, error) {
	var people []models.Person
	err := r.DB.Order("display_name ASC").Find(&people).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	return people, nil
}

// Rename updates a person's display name
func (r *PersonRepository) Rename(id uint, displayName string) error {
	result := r.DB.Model(&models.Person{}).Where("id = ?", id).Updates(map[string]interface{}{
		"display_name": displayName,
		"updated_at":   time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to rename person ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateThumbnailPath records the generated face thumbnail location
func (r *PersonRepository) UpdateThumbnailPath(id uint, thumbnailPath *string) error {
	result := r.DB.Model(&models.Person{}).Where("id = ?", id).Updates(map[string]interface{}{
		"thumbnail_path": thumbnailPath,
		"updated_at":     time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update thumbnail for person ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a person. Member faces are detached, not deleted, and all
// derived photo links for the person are removed.
func (r *PersonRepository) Delete(id uint) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Face{}).Where("person_id = ?", id).
			Update("person_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach faces: %w", err)
		}
		if err := tx.Where("person_id = ?", id).Delete(&models.PhotoPerson{}).Error; err != nil {
			return fmt.Errorf("failed to remove photo links: %w", err)
		}

		result := tx.Delete(&models.Person{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete person ID %d: %w", id, err)
	}
	return nil
}

// Merge folds the source persons into the target, used only when a recorded
// merge conflict is confirmed manually. All member faces move to the target,
// photo links are rebuilt, the sources are removed, and the target's derived
// fields are recomputed.
func (r *PersonRepository) Merge(targetID uint, sourceIDs []uint) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	for _, src := range sourceIDs {
		if src == targetID {
			return fmt.Errorf("person %d cannot be merged into itself", targetID)
		}
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var target models.Person
		if err := tx.First(&target, targetID).Error; err != nil {
			return fmt.Errorf("target person %d: %w", targetID, err)
		}

		if err := tx.Model(&models.Face{}).Where("person_id IN ?", sourceIDs).
			Update("person_id", targetID).Error; err != nil {
			return fmt.Errorf("failed to move faces: %w", err)
		}
		if err := tx.Where("person_id IN ?", sourceIDs).Delete(&models.PhotoPerson{}).Error; err != nil {
			return fmt.Errorf("failed to drop source photo links: %w", err)
		}
		if err := tx.Delete(&models.Person{}, sourceIDs).Error; err != nil {
			return fmt.Errorf("failed to delete source persons: %w", err)
		}

		return refreshPersonDerived(tx, targetID)
	})
	if err != nil {
		return fmt.Errorf("failed to merge persons %v into %d: %w", sourceIDs, targetID, err)
	}
	return nil
}

// ListPhotoIDs returns the photo IDs linked to a person via the derived
// photo_people table
func (r *PersonRepository) ListPhotoIDs(personID uint) ([]string, error) {
	var ids []string
	err := r.DB.Model(&models.PhotoPerson{}).Where("person_id = ?", personID).
		Order("photo_id ASC").Pluck("photo_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list photos for person %d: %w", personID, err)
	}
	return ids, nil
}

// refreshPersonDerived recomputes representative face, face count and photo
// links for one person inside an open transaction.
func refreshPersonDerived(tx *gorm.DB, personID uint) error {
	var faces []models.Face
	if err := tx.Where("person_id = ?", personID).Order("id ASC").Find(&faces).Error; err != nil {
		return fmt.Errorf("failed to load member faces: %w", err)
	}

	var repID *uint
	if len(faces) > 0 {
		best := faces[0]
		for _, f := range faces[1:] {
			if f.QualityScore > best.QualityScore {
				best = f
			}
		}
		id := best.ID
		repID = &id
	}

	if err := tx.Model(&models.Person{}).Where("id = ?", personID).Updates(map[string]interface{}{
		"representative_face_id": repID,
		"face_count":             len(faces),
		"updated_at":             time.Now().Unix(),
	}).Error; err != nil {
		return fmt.Errorf("failed to update derived fields: %w", err)
	}

	if err := tx.Where("person_id = ?", personID).Delete(&models.PhotoPerson{}).Error; err != nil {
		return fmt.Errorf("failed to clear photo links: %w", err)
	}
	seen := make(map[string]bool)
	now := time.Now().Unix()
	for _, f := range faces {
		if seen[f.PhotoID] {
			continue
		}
		seen[f.PhotoID] = true
		link := models.PhotoPerson{PhotoID: f.PhotoID, PersonID: personID, CreatedAt: now}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link photo %s: %w", f.PhotoID, err)
		}
	}
	return nil
}
