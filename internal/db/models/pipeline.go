package models

// Pipeline is a named, versioned workflow with the set of meta-dataset types
// it accepts.
type Pipeline struct {
	ID      uint64 `gorm:"primaryKey"`
	Name    string `gorm:"size:50;not null;uniqueIndex:idx_pipeline_name_version"`
	Version string `gorm:"size:50;not null;uniqueIndex:idx_pipeline_name_version"`

	SupportedTypes []PipelineDatasetType
}

// TableName specifies the database table name for the Pipeline model.
func (Pipeline) TableName() string {
	return "pipelines"
}

// Accepts reports whether the pipeline accepts the given meta-dataset type.
func (p *Pipeline) Accepts(meta MetaDatasetType) bool {
	for _, t := range p.SupportedTypes {
		if t.SupportedMetaDatasetType == meta {
			return true
		}
	}

	return false
}

// PipelineDatasetType is one accepted meta-dataset type of a pipeline.
type PipelineDatasetType struct {
	PipelineID               uint64          `gorm:"primaryKey"`
	SupportedMetaDatasetType MetaDatasetType `gorm:"primaryKey;type:varchar(10)"`
}

// TableName specifies the database table name for the PipelineDatasetType model.
func (PipelineDatasetType) TableName() string {
	return "pipeline_dataset_types"
}
