package models

import (
	"encoding/json"
	"fmt"
)

// MergeConflict records a clustering result implying that two or more
// previously distinct persons are the same individual. Conflicts are never
// auto-resolved; they wait for explicit confirmation. It corresponds to the
// 'merge_conflicts' table.
type MergeConflict struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID         string `gorm:"not null;index" json:"run_id"`
	ClusterTempID int    `gorm:"not null" json:"cluster_temp_id"`

	// JSON-encoded list of the colliding person IDs
	PersonIDsJSON string `gorm:"not null;column:person_ids" json:"-"`

	Resolved  bool  `gorm:"not null;default:false" json:"resolved"`
	CreatedAt int64 `gorm:"not null" json:"created_at"`
	UpdatedAt int64 `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (MergeConflict) TableName() string {
	return "merge_conflicts"
}

// PersonIDs decodes the colliding person ID list.
func (mc *MergeConflict) PersonIDs() ([]uint, error) {
	var ids []uint
	if err := json.Unmarshal([]byte(mc.PersonIDsJSON), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode person IDs for conflict %d: %w", mc.ID, err)
	}
	return ids, nil
}

// SetPersonIDs encodes the colliding person ID list.
func (mc *MergeConflict) SetPersonIDs(ids []uint) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode person IDs: %w", err)
	}
	mc.PersonIDsJSON = string(data)
	return nil
}
