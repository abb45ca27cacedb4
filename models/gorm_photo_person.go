package models

// PhotoPerson is the derived many-to-many edge between a photo and a person.
// An edge exists if and only if at least one face in the photo is a member of
// the person; it has no independent lifecycle and is rebuilt whenever
// membership changes. It corresponds to the 'photo_people' table.
type PhotoPerson struct {
	PhotoID   string `gorm:"primaryKey" json:"photo_id"`
	PersonID  uint   `gorm:"primaryKey" json:"person_id"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (PhotoPerson) TableName() string {
	return "photo_people"
}
