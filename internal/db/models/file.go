package models

// File is an object-store path linked to datasets. A non-multiplexed file is
// attached to at most one dataset; a multiplexed file may be attached to
// many. A file that loses its last link is deleted.
type File struct {
	ID          uint64 `gorm:"primaryKey"`
	Path        string `gorm:"unique;size:500;not null"`
	Multiplexed bool

	Datasets []Dataset `gorm:"many2many:datasets_files"`
}

// TableName specifies the database table name for the File model.
func (File) TableName() string {
	return "files"
}
