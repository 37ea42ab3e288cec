package models

// UserGroup is the users_groups m:n link.
type UserGroup struct {
	UserID  uint64 `gorm:"primaryKey"`
	GroupID uint64 `gorm:"primaryKey"`
}

// TableName overrides the default join table name.
func (UserGroup) TableName() string {
	return "users_groups"
}

// GroupDataset is the groups_datasets m:n link.
type GroupDataset struct {
	GroupID   uint64 `gorm:"primaryKey"`
	DatasetID uint64 `gorm:"primaryKey"`
}

// TableName overrides the default join table name.
func (GroupDataset) TableName() string {
	return "groups_datasets"
}

// DatasetAnalysis is the datasets_analyses m:n link.
type DatasetAnalysis struct {
	DatasetID  uint64 `gorm:"primaryKey"`
	AnalysisID uint64 `gorm:"primaryKey"`
}

// TableName overrides the default join table name.
func (DatasetAnalysis) TableName() string {
	return "datasets_analyses"
}

// DatasetFile is the datasets_files m:n link.
type DatasetFile struct {
	DatasetID uint64 `gorm:"primaryKey"`
	FileID    uint64 `gorm:"primaryKey"`
}

// TableName overrides the default join table name.
func (DatasetFile) TableName() string {
	return "datasets_files"
}
