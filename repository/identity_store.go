package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/photonest/photonestbackend/identity"
	"github.com/photonest/photonestbackend/models"
	"gorm.io/gorm"
)

// IdentityStore adapts GORM to the identity registry's transactional write
// surface. All registry writes for one run happen inside a single database
// transaction.
type IdentityStore struct {
	DB *gorm.DB
}

// Ensure IdentityStore implements identity.Store
var _ identity.Store = (*IdentityStore)(nil)

// NewIdentityStore creates a new instance of IdentityStore
func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{DB: db}
}

// Transact runs fn inside one transaction; gorm rolls back when fn errors
func (s *IdentityStore) Transact(ctx context.Context, fn func(tx identity.Tx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&identityTx{tx: tx})
	})
}

type identityTx struct {
	tx *gorm.DB
}

// Ensure identityTx implements identity.Tx
var _ identity.Tx = (*identityTx)(nil)

func (t *identityTx) CreatePerson(person *models.Person) error {
	now := time.Now().Unix()
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	if person.UpdatedAt == 0 {
		person.UpdatedAt = now
	}

	if err := t.tx.Create(person).Error; err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	if person.DisplayName == "" {
		person.DisplayName = fmt.Sprintf("Person %d", person.ID)
		if err := t.tx.Model(&models.Person{}).Where("id = ?", person.ID).
			Update("display_name", person.DisplayName).Error; err != nil {
			return fmt.Errorf("failed to set default display name: %w", err)
		}
	}
	return nil
}

func (t *identityTx) AssignFaces(faceIDs []uint, personID uint) error {
	if len(faceIDs) == 0 {
		return nil
	}
	err := t.tx.Model(&models.Face{}).Where("id IN ?", faceIDs).Updates(map[string]interface{}{
		"person_id":  personID,
		"updated_at": time.Now().Unix(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to assign %d faces to person %d: %w", len(faceIDs), personID, err)
	}
	return nil
}

func (t *identityTx) FacesOfPerson(personID uint) ([]models.Face, error) {
	var faces []models.Face
	err := t.tx.Where("person_id = ?", personID).Order("id ASC").Find(&faces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list faces of person %d: %w", personID, err)
	}
	return faces, nil
}

func (t *identityTx) UpdatePersonDerived(personID uint, representativeFaceID *uint, faceCount int) error {
	result := t.tx.Model(&models.Person{}).Where("id = ?", personID).Updates(map[string]interface{}{
		"representative_face_id": representativeFaceID,
		"face_count":             faceCount,
		"updated_at":             time.Now().Unix(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update person %d: %w", personID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *identityTx) ReplacePhotoLinks(personID uint, photoIDs []string) error {
	if err := t.tx.Where("person_id = ?", personID).Delete(&models.PhotoPerson{}).Error; err != nil {
		return fmt.Errorf("failed to clear photo links of person %d: %w", personID, err)
	}
	now := time.Now().Unix()
	for _, photoID := range photoIDs {
		link := models.PhotoPerson{PhotoID: photoID, PersonID: personID, CreatedAt: now}
		if err := t.tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link photo %s to person %d: %w", photoID, personID, err)
		}
	}
	return nil
}

func (t *identityTx) RecordConflict(conflict *models.MergeConflict) error {
	now := time.Now().Unix()
	if conflict.CreatedAt == 0 {
		conflict.CreatedAt = now
	}
	conflict.UpdatedAt = now

	if err := t.tx.Create(conflict).Error; err != nil {
		return fmt.Errorf("failed to record merge conflict for run %s: %w", conflict.RunID, err)
	}
	return nil
}
