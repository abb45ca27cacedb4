package models

// DetectedObject represents one object detection in a photo, using GORM.
// It corresponds to the 'detected_objects' table.
type DetectedObject struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	PhotoID    string  `gorm:"not null;index" json:"photo_id"`
	Label      string  `gorm:"not null" json:"label"` // car, person, cake, ...
	Confidence float64 `gorm:"not null" json:"confidence"`

	// bounding box in source-image pixel coordinates
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`

	CreatedAt int64 `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (DetectedObject) TableName() string {
	return "detected_objects"
}
