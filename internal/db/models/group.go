package models

// Group is a permission group. Its code doubles as the name of its primary
// bucket and its policy on the object store; results-{code} is the second
// bucket. A user sees a dataset iff some group contains both.
type Group struct {
	ID uint64 `gorm:"primaryKey"`
	// Code is the canonical short identifier, see ValidateGroupCode.
	Code string `gorm:"unique;size:50;not null"`
	// Name is the unique display name.
	Name string `gorm:"unique;size:250;not null"`

	Users    []User    `gorm:"many2many:users_groups"`
	Datasets []Dataset `gorm:"many2many:groups_datasets"`
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "groups"
}

// ResultsBucket returns the name of the group's results bucket.
func (g *Group) ResultsBucket() string {
	return ReservedGroupPrefix + g.Code
}
