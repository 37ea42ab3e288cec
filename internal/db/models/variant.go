package models

// Gene is an annotated gene with stable external identifiers.
type Gene struct {
	ID        uint64 `gorm:"primaryKey"`
	HGNCID    *int   `gorm:"uniqueIndex"`
	EnsemblID *int   `gorm:"uniqueIndex"`
	Name      string `gorm:"size:50"`

	Aliases []GeneAlias
}

// TableName specifies the database table name for the Gene model.
func (Gene) TableName() string {
	return "genes"
}

// GeneAlias is an alternative symbol for a gene.
type GeneAlias struct {
	GeneID uint64 `gorm:"primaryKey"`
	Alias  string `gorm:"primaryKey;size:50"`
}

// TableName specifies the database table name for the GeneAlias model.
func (GeneAlias) TableName() string {
	return "gene_aliases"
}

// Variant is an annotated variant row produced by an analysis.
type Variant struct {
	ID         uint64 `gorm:"primaryKey"`
	AnalysisID uint64 `gorm:"not null;index"`
	Analysis   *Analysis

	Chromosome string `gorm:"size:5;not null"`
	Position   int64  `gorm:"not null"`
	Reference  string `gorm:"size:300"`
	Alt        string `gorm:"size:300"`

	GeneID     *uint64
	Gene       *Gene
	Variation  string `gorm:"size:100"`
	Refseq     string `gorm:"size:300"`
	Depth      *int
	Quality    *int
	Clinvar    string `gorm:"size:300"`
	GnomadAF   *float64
	CaddScore  *float64
	Ensembl    string `gorm:"size:100"`
	Info       string

	Genotypes []Genotype
}

// TableName specifies the database table name for the Variant model.
func (Variant) TableName() string {
	return "variants"
}

// Genotype is the per-dataset observation of a variant.
type Genotype struct {
	VariantID uint64 `gorm:"primaryKey"`
	DatasetID uint64 `gorm:"primaryKey"`

	Zygosity        string `gorm:"size:20"`
	Burden          *int
	AltDepths       *int
	TotalDepth      *int
	GenotypeQuality *int
}

// TableName specifies the database table name for the Genotype model.
func (Genotype) TableName() string {
	return "genotypes"
}
