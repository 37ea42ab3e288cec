// Package scope is the access projector: it restricts queries over the
// family / participant / tissue-sample / dataset graph to the rows reachable
// from the caller's permission groups. The join paths defined here are the
// only way visibility is computed; no other package builds its own.
package scope

import (
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/db/models"
)

// Canonical permission path: Group -> Dataset, then upward through the tree.
// Each root entity joins down to datasets and from there into
// groups_datasets / users_groups. Administrators bypass the restriction.

// Datasets returns the dataset query restricted to u's groups. The tissue
// sample, participant and family tables are always joined so filters and
// sorts on their columns compose with the restriction.
func Datasets(tx *gorm.DB, u models.User) *gorm.DB {
	tx = tx.Model(&models.Dataset{}).
		Joins("JOIN tissue_samples ON tissue_samples.id = datasets.tissue_sample_id").
		Joins("JOIN participants ON participants.id = tissue_samples.participant_id").
		Joins("JOIN families ON families.id = participants.family_id")

	return restrictDatasets(tx, u)
}

// TissueSamples returns the tissue-sample query restricted to u's groups.
func TissueSamples(tx *gorm.DB, u models.User) *gorm.DB {
	tx = tx.Model(&models.TissueSample{}).
		Joins("JOIN participants ON participants.id = tissue_samples.participant_id").
		Joins("JOIN families ON families.id = participants.family_id")

	if u.IsAdmin {
		return tx
	}

	return permissionJoin(
		tx.Joins("JOIN datasets ON datasets.tissue_sample_id = tissue_samples.id"), u)
}

// Participants returns the participant query restricted to u's groups.
func Participants(tx *gorm.DB, u models.User) *gorm.DB {
	tx = tx.Model(&models.Participant{}).
		Joins("JOIN families ON families.id = participants.family_id")

	if u.IsAdmin {
		return tx
	}

	return permissionJoin(
		tx.Joins("JOIN tissue_samples ON tissue_samples.participant_id = participants.id").
			Joins("JOIN datasets ON datasets.tissue_sample_id = tissue_samples.id"), u)
}

// Families returns the family query restricted to u's groups.
func Families(tx *gorm.DB, u models.User) *gorm.DB {
	tx = tx.Model(&models.Family{})

	if u.IsAdmin {
		return tx
	}

	return permissionJoin(
		tx.Joins("JOIN participants ON participants.family_id = families.id").
			Joins("JOIN tissue_samples ON tissue_samples.participant_id = participants.id").
			Joins("JOIN datasets ON datasets.tissue_sample_id = tissue_samples.id"), u)
}

// Analyses returns the analysis query restricted to u's groups. An analysis
// is visible when any of its datasets is.
func Analyses(tx *gorm.DB, u models.User) *gorm.DB {
	tx = tx.Model(&models.Analysis{})

	if u.IsAdmin {
		return tx
	}

	return permissionJoin(
		tx.Joins("JOIN datasets_analyses ON datasets_analyses.analysis_id = analyses.id").
			Joins("JOIN datasets ON datasets.id = datasets_analyses.dataset_id"), u)
}

// Files returns the file query restricted to u's groups.
func Files(tx *gorm.DB, u models.User) *gorm.DB {
	tx = tx.Model(&models.File{})

	if u.IsAdmin {
		return tx
	}

	return permissionJoin(
		tx.Joins("JOIN datasets_files ON datasets_files.file_id = files.id").
			Joins("JOIN datasets ON datasets.id = datasets_files.dataset_id"), u)
}

func restrictDatasets(tx *gorm.DB, u models.User) *gorm.DB {
	if u.IsAdmin {
		return tx
	}

	return permissionJoin(tx, u)
}

// permissionJoin attaches the Group -> Dataset permission tables to a query
// that already reaches the datasets table.
func permissionJoin(tx *gorm.DB, u models.User) *gorm.DB {
	return tx.
		Joins("JOIN groups_datasets ON groups_datasets.dataset_id = datasets.id").
		Joins("JOIN users_groups ON users_groups.group_id = groups_datasets.group_id").
		Where("users_groups.user_id = ?", u.ID)
}

// DatasetsInGroup narrows a dataset query to datasets linked to the group
// with the given code. Expressed as an existence sub-query so the outer row
// count stays one per dataset.
func DatasetsInGroup(tx *gorm.DB, code string) *gorm.DB {
	return tx.Where(
		"EXISTS (SELECT 1 FROM groups_datasets gd JOIN groups g ON g.id = gd.group_id"+
			" WHERE gd.dataset_id = datasets.id AND g.code = ?)", code)
}

// DatasetsWithFilePath narrows a dataset query to datasets with a linked file
// whose path contains the pattern.
func DatasetsWithFilePath(tx *gorm.DB, pattern string) *gorm.DB {
	return tx.Where(
		"EXISTS (SELECT 1 FROM datasets_files df JOIN files f ON f.id = df.file_id"+
			" WHERE df.dataset_id = datasets.id AND f.path LIKE ?)", "%"+pattern+"%")
}
