package repository

import (
	"github.com/photonest/photonestbackend/models"
)

// PhotoRepositoryInterface defines the methods for photo data operations
type PhotoRepositoryInterface interface {
	Create(photo *models.Photo) error
	GetByID(id string) (*models.Photo, error)
	GetByPath(path string) (*models.Photo, error)
	GetByFileName(fileName string) (*models.Photo, error)
	ListAll() ([]models.Photo, error)
	ListUnanalyzed() ([]models.Photo, error)
	SetAnalysisResult(id string, analyzedAt int64, analysisErr error) error
	UpdateMetadata(photo *models.Photo) error
	ReplaceObjects(photoID string, objects []models.DetectedObject) error
	Delete(id string) error
}

// FaceRepositoryInterface defines the methods for face data operations
type FaceRepositoryInterface interface {
	Create(face *models.Face) error
	GetByID(id uint) (*models.Face, error)
	ListByPhotoID(photoID string) ([]models.Face, error)
	ListByPersonID(personID uint) ([]models.Face, error)
	ListAll() ([]models.Face, error)
	Delete(id uint) error
}

// PersonRepositoryInterface defines the methods for person data operations
type PersonRepositoryInterface interface {
	Create(person *models.Person) error
	GetByID(id uint) (*models.Person, error)
	ListAll() ([]models.Person, error)
	Rename(id uint, displayName string) error
	UpdateThumbnailPath(id uint, thumbnailPath *string) error
	Delete(id uint) error
	Merge(targetID uint, sourceIDs []uint) error
	ListPhotoIDs(personID uint) ([]string, error)
}

// FaceEmbeddingRepositoryInterface defines the methods for face embedding
// data operations. Embeddings are append-only; there is no update.
type FaceEmbeddingRepositoryInterface interface {
	Create(embedding *models.FaceEmbedding) error
	GetByFaceID(faceID uint) (*models.FaceEmbedding, error)
	ListAll() ([]models.FaceEmbedding, error)
	Count() (int64, error)
}

// ConflictRepositoryInterface defines the methods for merge conflict data
// operations
type ConflictRepositoryInterface interface {
	Create(conflict *models.MergeConflict) error
	GetByID(id uint) (*models.MergeConflict, error)
	ListOpen() ([]models.MergeConflict, error)
	MarkResolved(id uint) error
}
