package scope

import (
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
)

const (
	// DefaultLimit for paged listings.
	DefaultLimit = 25
	// MaxLimit clamps the page size upper bound.
	MaxLimit = 500
)

// ListParams are the paging and ordering inputs of a listing.
type ListParams struct {
	Page    int
	Limit   int
	OrderBy string
	Order   string // asc or desc, empty means asc
}

// sortColumns maps the request-facing sort keys of each root to qualified
// columns. Only these closed sets are accepted; joined columns are limited to
// the tables the root's canonical join path already includes.
var sortColumns = map[string]map[string]string{
	"datasets": {
		"dataset_id":           "datasets.id",
		"dataset_type":         "datasets.dataset_type",
		"condition":            "datasets.condition",
		"updated":              "datasets.updated",
		"notes":                "datasets.notes",
		"tissue_sample_type":   "tissue_samples.sample_type",
		"participant_codename": "participants.codename",
		"family_codename":      "families.codename",
	},
	"tissue_samples": {
		"tissue_sample_id":     "tissue_samples.id",
		"sample_type":          "tissue_samples.sample_type",
		"updated":              "tissue_samples.updated",
		"participant_codename": "participants.codename",
		"family_codename":      "families.codename",
	},
	"participants": {
		"participant_id":       "participants.id",
		"participant_codename": "participants.codename",
		"sex":                  "participants.sex",
		"participant_type":     "participants.participant_type",
		"affected":             "participants.affected",
		"updated":              "participants.updated",
		"family_codename":      "families.codename",
	},
	"families": {
		"family_id":       "families.id",
		"family_codename": "families.codename",
		"updated":         "families.updated",
	},
	"analyses": {
		"analysis_id": "analyses.id",
		"state":       "analyses.state",
		"requested":   "analyses.requested",
		"updated":     "analyses.updated",
		"pipeline_id": "analyses.pipeline_id",
		"result_path": "analyses.result_path",
	},
	"files": {
		"file_id":     "files.id",
		"path":        "files.path",
		"multiplexed": "files.multiplexed",
	},
}

// orderClause validates the sort inputs against the root's closed set and
// returns the SQL order expression, empty when no ordering was requested.
// Rows are grouped by the root's id; joined columns are aggregated so the
// expression is legal on engines that enforce the grouping rules. Root
// columns are functionally dependent on the id and stay bare.
func orderClause(root string, p ListParams) (string, error) {
	if p.OrderBy == "" {
		return "", nil
	}

	columns, ok := sortColumns[root]
	if !ok {
		return "", apperr.Invalid("scope.page", "unknown listing root %q", root)
	}

	col, ok := columns[p.OrderBy]
	if !ok {
		return "", apperr.Invalid("scope.page",
			"cannot order by %q, must be one of [%s]", p.OrderBy, strings.Join(sortKeys(columns), ", "))
	}

	if !strings.HasPrefix(col, root+".") {
		col = "MIN(" + col + ")"
	}

	switch strings.ToLower(p.Order) {
	case "", "asc":
		return col + " ASC", nil
	case "desc":
		return col + " DESC", nil
	default:
		return "", apperr.Invalid("scope.page", "sort direction %q must be asc or desc", p.Order)
	}
}

func sortKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Page applies limit/offset to a projected query and returns the distinct
// total of root entities under the same join and filter stack. The total is
// never the row count of the joined relation.
func Page(tx *gorm.DB, root string, p ListParams, dest interface{}) (int64, error) {
	order, err := orderClause(root, p)
	if err != nil {
		return 0, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	if limit > MaxLimit {
		limit = MaxLimit
	}

	page := p.Page
	if page < 0 {
		page = 0
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Distinct(root + ".id").Count(&total).Error; err != nil {
		return 0, apperr.Transient("scope.page", err)
	}

	// GROUP BY the primary key deduplicates the joined rows and, unlike
	// SELECT DISTINCT, keeps ordering by joined columns valid on postgres
	q := tx.Select(root + ".*").Group(root + ".id")
	if order != "" {
		q = q.Order(order)
	}

	if err := q.Limit(limit).Offset(page * limit).Find(dest).Error; err != nil {
		return 0, apperr.Transient("scope.page", err)
	}

	return total, nil
}
