package models

import "time"

// Discriminator values for the polymorphic dataset row.
const (
	DiscriminatorDataset       = "dataset"
	DiscriminatorRNASeqDataset = "rnaseq_dataset"
)

// Dataset is one sequencing experiment on a tissue sample. Two shapes share
// the table: the base dataset and the RNA-seq refinement; the discriminator
// column is set at creation and read-only afterwards. Queries that do not
// need the refinement use the base fields; the RNA-seq fields are null for
// base rows.
type Dataset struct {
	ID             uint64 `gorm:"primaryKey"`
	TissueSampleID uint64 `gorm:"not null"`
	TissueSample   *TissueSample

	// Discriminator tags the row shape; never updated after creation.
	Discriminator string `gorm:"<-:create;size:30;not null;default:dataset"`

	DatasetType DatasetType      `gorm:"type:varchar(10);not null"`
	Condition   DatasetCondition `gorm:"type:varchar(10)"`

	ExtractionProtocol  string `gorm:"size:100"`
	Capture             string `gorm:"size:100"`
	LibraryPrepMethod   string `gorm:"size:50"`
	LibraryPrepDate     *time.Time
	ReadLength          *int
	ReadType            ReadType `gorm:"type:varchar(10)"`
	SequencingID        string   `gorm:"size:50"`
	SequencingCentre    string   `gorm:"size:100"`
	SequencingDate      *time.Time
	Batch               string `gorm:"size:50"`
	Notes               string

	// RNA-seq refinement, present only when Discriminator is rnaseq_dataset.
	CandidateGenes *string
	VCFAvailable   *bool

	Groups   []Group    `gorm:"many2many:groups_datasets"`
	Files    []File     `gorm:"many2many:datasets_files"`
	Analyses []Analysis `gorm:"many2many:datasets_analyses"`

	Stamps
}

// TableName specifies the database table name for the Dataset model.
func (Dataset) TableName() string {
	return "datasets"
}

// IsRNASeq reports whether the row carries the RNA-seq refinement.
func (d *Dataset) IsRNASeq() bool {
	return d.Discriminator == DiscriminatorRNASeqDataset
}
