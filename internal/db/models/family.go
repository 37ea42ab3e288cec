package models

import "time"

// Stamps records creation and last-touch provenance. Every mutating
// operation bumps Updated and stamps UpdatedByID with the effective identity;
// under admin impersonation the stamps record the administrator.
type Stamps struct {
	Created     time.Time `gorm:"autoCreateTime"`
	CreatedByID uint64    `gorm:"column:created_by"`
	Updated     time.Time `gorm:"autoUpdateTime"`
	UpdatedByID uint64    `gorm:"column:updated_by"`
}

// Family is the root of the participant tree. Deletion is refused while any
// participant exists.
type Family struct {
	ID uint64 `gorm:"primaryKey"`
	// Codename matches the family grammar, see ValidateFamilyCodename.
	Codename string `gorm:"unique;size:50;not null"`

	Participants []Participant

	Stamps
}

// TableName specifies the database table name for the Family model.
func (Family) TableName() string {
	return "families"
}
