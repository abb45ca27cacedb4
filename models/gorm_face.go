package models

import "gorm.io/gorm"

// Emotion detection status values. The analyzer distinguishes "no emotion
// data" from "emotion model failed"; neither is collapsed into a default.
const (
	EmotionStatusOK     = "ok"
	EmotionStatusNone   = "none"
	EmotionStatusFailed = "failed"
)

// Face represents one detected face in one photo, optionally assigned to a
// person. It corresponds to the 'faces' table.
type Face struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PhotoID  string `gorm:"not null;index" json:"photo_id"`
	PersonID *uint  `gorm:"index" json:"person_id,omitempty"` // Nullable foreign key to people table

	// bounding box in source-image pixel coordinates
	Top    int `gorm:"not null" json:"top"`
	Right  int `gorm:"not null" json:"right"`
	Bottom int `gorm:"not null" json:"bottom"`
	Left   int `gorm:"not null" json:"left"`

	// composite quality score in [0,1] precomputed by the analyzer
	// (sharpness 0.35, brightness 0.25, size 0.25, aspect 0.15); immutable
	QualityScore        float64 `gorm:"not null" json:"quality_score"`
	DetectionConfidence float64 `json:"detection_confidence"`

	// emotion enrichment, carried through but unused by clustering
	EmotionStatus     string   `gorm:"not null;default:'none'" json:"emotion_status"`
	EmotionLabel      *string  `json:"emotion_label,omitempty"`
	EmotionConfidence *float64 `json:"emotion_confidence,omitempty"`
	EmotionValence    *float64 `json:"emotion_valence,omitempty"`

	CreatedAt int64          `gorm:"not null" json:"created_at"`
	UpdatedAt int64          `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Photo  *Photo  `gorm:"foreignKey:PhotoID" json:"photo,omitempty"`   // Belongs to Photo
	Person *Person `gorm:"foreignKey:PersonID" json:"person,omitempty"` // Belongs to Person
}

// TableName explicitly sets the table name for GORM.
func (Face) TableName() string {
	return "faces"
}

// Width returns the pixel width of the face bounding box.
func (f *Face) Width() int { return f.Right - f.Left }

// Height returns the pixel height of the face bounding box.
func (f *Face) Height() int { return f.Bottom - f.Top }
