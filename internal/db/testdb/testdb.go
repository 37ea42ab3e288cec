// Package testdb opens throwaway in-memory databases for package tests.
package testdb

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/genovault/genovault/internal/db/models"
)

// Open returns an in-memory sqlite database with the full schema migrated.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.UserGroup{},
		&models.Family{},
		&models.Participant{},
		&models.TissueSample{},
		&models.Dataset{},
		&models.File{},
		&models.DatasetFile{},
		&models.Pipeline{},
		&models.PipelineDatasetType{},
		&models.Analysis{},
		&models.DatasetAnalysis{},
		&models.GroupDataset{},
		&models.Gene{},
		&models.GeneAlias{},
		&models.Variant{},
		&models.Genotype{},
	))

	return db
}
