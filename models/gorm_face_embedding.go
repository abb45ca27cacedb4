package models

import (
	"gorm.io/gorm"
)

// DefaultEmbeddingModel is the face encoder the analyzer runs.
const DefaultEmbeddingModel = "dlib_resnet"

// FaceEmbedding is the append-only record of a face's identity vector.
// It corresponds to the 'face_embeddings' table. Rows are written once per
// face by the vision pipeline and never mutated afterwards.
type FaceEmbedding struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	FaceID         uint           `gorm:"uniqueIndex;not null" json:"face_id"`
	PhotoID        string         `gorm:"not null;index" json:"photo_id"`
	EmbeddingData  []byte         `gorm:"not null;column:embedding_data" json:"-"` // fixed-length vector as BLOB
	EmbeddingModel string         `gorm:"not null;column:embedding_model;default:'dlib_resnet'" json:"embedding_model"`
	QualityScore   float64        `gorm:"not null;column:quality_score" json:"quality_score"`
	CreatedAt      int64          `gorm:"not null" json:"created_at"`
	UpdatedAt      int64          `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Face *Face `gorm:"foreignKey:FaceID" json:"face,omitempty"` // Belongs to Face
}

// TableName explicitly sets the table name for GORM.
func (FaceEmbedding) TableName() string {
	return "face_embeddings"
}

// GetEmbedding converts the BLOB data to []float32
func (fe *FaceEmbedding) GetEmbedding() []float32 {
	return DecodeVector(fe.EmbeddingData)
}

// SetEmbedding converts []float32 to BLOB data
func (fe *FaceEmbedding) SetEmbedding(embedding []float32) {
	fe.EmbeddingData = EncodeVector(embedding)
}
