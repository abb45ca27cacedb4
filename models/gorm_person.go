package models

// Person represents a persistent identity grouping face observations, using
// GORM. It corresponds to the 'people' table. The ID is assigned once at
// creation and never changes across re-clustering runs; cluster labels are
// ephemeral and must never be persisted as identity.
type Person struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DisplayName string `gorm:"not null" json:"display_name"` // user-editable, defaults to "Person N"

	// representative face chosen by quality; always a current member
	RepresentativeFaceID *uint `gorm:"column:representative_face_id" json:"representative_face_id,omitempty"`

	// derived: count of member faces, recomputed on membership change
	FaceCount int `gorm:"not null;default:0" json:"face_count"`

	// relative path of the generated face thumbnail, if any
	ThumbnailPath *string `json:"thumbnail_path,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"`
	UpdatedAt int64 `gorm:"not null" json:"updated_at"`

	// omitempty hides these if they are not preloaded or are empty
	Faces []Face `gorm:"foreignKey:PersonID;constraint:OnDelete:SET NULL" json:"faces,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Person) TableName() string {
	return "people"
}
