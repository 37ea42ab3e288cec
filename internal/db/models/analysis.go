package models

import "time"

// Analysis is a compute request over one or more datasets. All linked
// datasets must be jointly admissible for the pipeline. Non-admin callers may
// only transition the state to Cancelled.
type Analysis struct {
	ID uint64 `gorm:"primaryKey"`

	State AnalysisState `gorm:"type:varchar(10);not null;default:Requested"`

	PipelineID uint64 `gorm:"not null"`
	Pipeline   *Pipeline

	RequesterID uint64 `gorm:"not null"`
	AssigneeID  *uint64
	UpdatedByID uint64 `gorm:"column:updated_by"`

	SchedulerID string `gorm:"size:50"` // id assigned by the external batch scheduler
	ResultPath  string `gorm:"size:500"`
	Notes       string

	Requested time.Time `gorm:"autoCreateTime"`
	Started   *time.Time
	Finished  *time.Time
	Updated   time.Time `gorm:"autoUpdateTime"`

	Datasets []Dataset `gorm:"many2many:datasets_analyses"`
}

// TableName specifies the database table name for the Analysis model.
func (Analysis) TableName() string {
	return "analyses"
}
