package models

// Participant is a family member enrolled in the study.
type Participant struct {
	ID       uint64 `gorm:"primaryKey"`
	FamilyID uint64 `gorm:"not null;uniqueIndex:idx_family_codename"`
	Family   *Family
	// Codename matches the participant grammar, unique within the family.
	Codename string `gorm:"size:50;not null;uniqueIndex:idx_family_codename"`

	Sex             Sex             `gorm:"type:varchar(10)"`
	ParticipantType ParticipantType `gorm:"type:varchar(10)"`
	Affected        bool
	Solved          bool
	MonthOfBirth    *string `gorm:"size:7"` // YYYY-MM
	Institution     string  `gorm:"size:100"`
	Notes           string

	TissueSamples []TissueSample

	Stamps
}

// TableName specifies the database table name for the Participant model.
func (Participant) TableName() string {
	return "participants"
}
