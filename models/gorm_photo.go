package models

import "gorm.io/gorm"

// Photo represents an ingested photograph using GORM.
// It corresponds to the 'photos' table.
type Photo struct {
	ID       string `gorm:"primaryKey" json:"id"` // UUID assigned on ingest
	FileName string `gorm:"not null" json:"file_name"`
	Path     string `gorm:"not null;uniqueIndex" json:"path"`

	// EXIF-derived metadata, passed through unmodified from the metadata
	// collaborator; nil when the photo carries no EXIF data
	CameraMake   *string  `json:"camera_make,omitempty"`
	CameraModel  *string  `json:"camera_model,omitempty"`
	TakenAt      *int64   `json:"taken_at,omitempty"` // Unix timestamp from EXIF DateTimeOriginal
	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`
	Width        *int     `json:"width,omitempty"`
	Height       *int     `json:"height,omitempty"`

	// temporal context derived from TakenAt
	Season    string `json:"season"`      // winter, spring, summer, autumn, unknown
	TimeOfDay string `json:"time_of_day"` // morning, afternoon, evening, night, unknown

	// scene classification from the analyzer
	SceneType    string `json:"scene_type"`    // indoor / outdoor
	LocationType string `json:"location_type"` // beach, office, home, ...

	// aggregated photo emotion from the analyzer
	DominantEmotion string  `json:"dominant_emotion"`
	MoodScore       float64 `json:"mood_score"` // -1 negative .. +1 positive

	Caption string `json:"caption"`

	// CLIP-style semantic embedding for the whole photo, stored as BLOB
	ClipEmbedding []byte `gorm:"column:clip_embedding" json:"-"`

	// vision pipeline bookkeeping
	AnalyzedAt    *int64  `json:"analyzed_at,omitempty"`
	AnalysisError *string `json:"analysis_error,omitempty"`

	CreatedAt int64          `gorm:"not null" json:"created_at"`
	UpdatedAt int64          `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Faces   []Face           `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE" json:"faces,omitempty"`
	Objects []DetectedObject `gorm:"foreignKey:PhotoID;constraint:OnDelete:CASCADE" json:"objects,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Photo) TableName() string {
	return "photos"
}
