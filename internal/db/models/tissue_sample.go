package models

import "time"

// TissueSample is a tissue extraction from a participant; datasets hang off it.
type TissueSample struct {
	ID            uint64 `gorm:"primaryKey"`
	ParticipantID uint64 `gorm:"not null"`
	Participant   *Participant

	SampleType       TissueSampleType `gorm:"type:varchar(20)"`
	TissueProcessing TissueProcessing `gorm:"type:varchar(10)"`
	ExtractionDate   *time.Time
	Notes            string

	Datasets []Dataset

	Stamps
}

// TableName specifies the database table name for the TissueSample model.
func (TissueSample) TableName() string {
	return "tissue_samples"
}
