package models

import (
	"strings"

	"github.com/genovault/genovault/internal/apperr"
)

// Sex of a participant.
type Sex string

// Sex values.
const (
	SexFemale  Sex = "Female"
	SexMale    Sex = "Male"
	SexOther   Sex = "Other"
	SexUnknown Sex = "Unknown"
)

// SexValues is the closed set of Sex.
var SexValues = []string{string(SexFemale), string(SexMale), string(SexOther), string(SexUnknown)}

// ParticipantType is the relation of a participant to the proband.
type ParticipantType string

// ParticipantType values.
const (
	ParticipantProband ParticipantType = "Proband"
	ParticipantMother  ParticipantType = "Mother"
	ParticipantFather  ParticipantType = "Father"
	ParticipantSibling ParticipantType = "Sibling"
	ParticipantOther   ParticipantType = "Other"
)

// ParticipantTypeValues is the closed set of ParticipantType.
var ParticipantTypeValues = []string{
	string(ParticipantProband), string(ParticipantMother), string(ParticipantFather),
	string(ParticipantSibling), string(ParticipantOther),
}

// TissueSampleType is the kind of tissue a sample was taken from.
type TissueSampleType string

// TissueSampleType values.
const (
	TissueBlood      TissueSampleType = "Blood"
	TissueSaliva     TissueSampleType = "Saliva"
	TissueLymphocyte TissueSampleType = "Lymphocyte"
	TissueFibroblast TissueSampleType = "Fibroblast"
	TissueMuscle     TissueSampleType = "Muscle"
	TissueSkin       TissueSampleType = "Skin"
	TissueUrine      TissueSampleType = "Urine"
	TissuePlasma     TissueSampleType = "Plasma"
	TissueKidney     TissueSampleType = "Kidney"
	TissueUnknown    TissueSampleType = "Unknown"
)

// TissueSampleTypeValues is the closed set of TissueSampleType.
var TissueSampleTypeValues = []string{
	string(TissueBlood), string(TissueSaliva), string(TissueLymphocyte), string(TissueFibroblast),
	string(TissueMuscle), string(TissueSkin), string(TissueUrine), string(TissuePlasma),
	string(TissueKidney), string(TissueUnknown),
}

// TissueProcessing describes how a tissue sample was preserved.
type TissueProcessing string

// TissueProcessing values.
const (
	ProcessingFreshFrozen TissueProcessing = "FF"
	ProcessingFFPE        TissueProcessing = "FFPE"
)

// TissueProcessingValues is the closed set of TissueProcessing.
var TissueProcessingValues = []string{string(ProcessingFreshFrozen), string(ProcessingFFPE)}

// DatasetType is the sequencing experiment type of a dataset.
type DatasetType string

// DatasetType values.
const (
	DatasetCES DatasetType = "CES" // clinical exome
	DatasetWES DatasetType = "WES" // whole exome
	DatasetRES DatasetType = "RES" // research exome
	DatasetCGS DatasetType = "CGS" // clinical genome
	DatasetWGS DatasetType = "WGS" // whole genome
	DatasetRGS DatasetType = "RGS" // research genome
	DatasetRRS DatasetType = "RRS" // RNA-seq (carries the RNA-seq refinement)
	DatasetRLM DatasetType = "RLM" // RNA lymphocyte
	DatasetRMM DatasetType = "RMM" // RNA muscle
	DatasetRTA DatasetType = "RTA" // RNA other tissue
	DatasetOTH DatasetType = "OTH"
)

// DatasetTypeValues is the closed set of DatasetType.
var DatasetTypeValues = []string{
	string(DatasetCES), string(DatasetWES), string(DatasetRES),
	string(DatasetCGS), string(DatasetWGS), string(DatasetRGS),
	string(DatasetRRS), string(DatasetRLM), string(DatasetRMM), string(DatasetRTA),
	string(DatasetOTH),
}

// DatasetCondition distinguishes control, germline and somatic datasets.
type DatasetCondition string

// DatasetCondition values.
const (
	ConditionControl  DatasetCondition = "Control"
	ConditionGermLine DatasetCondition = "GermLine"
	ConditionSomatic  DatasetCondition = "Somatic"
)

// DatasetConditionValues is the closed set of DatasetCondition.
var DatasetConditionValues = []string{
	string(ConditionControl), string(ConditionGermLine), string(ConditionSomatic),
}

// ReadType of a sequencing run.
type ReadType string

// ReadType values.
const (
	ReadPairedEnd ReadType = "PairedEnd"
	ReadSingleEnd ReadType = "SingleEnd"
)

// ReadTypeValues is the closed set of ReadType.
var ReadTypeValues = []string{string(ReadPairedEnd), string(ReadSingleEnd)}

// AnalysisState is the lifecycle state of an analysis request.
type AnalysisState string

// AnalysisState values.
const (
	AnalysisRequested AnalysisState = "Requested"
	AnalysisRunning   AnalysisState = "Running"
	AnalysisDone      AnalysisState = "Done"
	AnalysisError     AnalysisState = "Error"
	AnalysisCancelled AnalysisState = "Cancelled"
)

// AnalysisStateValues is the closed set of AnalysisState.
var AnalysisStateValues = []string{
	string(AnalysisRequested), string(AnalysisRunning), string(AnalysisDone),
	string(AnalysisError), string(AnalysisCancelled),
}

// MetaDatasetType collapses DatasetType into the coarse classes a pipeline
// declares support for. It exists solely for admissibility checks.
type MetaDatasetType string

// MetaDatasetType values.
const (
	MetaExome  MetaDatasetType = "Exome"
	MetaGenome MetaDatasetType = "Genome"
	MetaRNA    MetaDatasetType = "RNA"
	MetaOther  MetaDatasetType = "Other"
)

// MetaDatasetTypeValues is the closed set of MetaDatasetType.
var MetaDatasetTypeValues = []string{
	string(MetaExome), string(MetaGenome), string(MetaRNA), string(MetaOther),
}

// datasetTypeToMeta is the canonical collapse of dataset types.
var datasetTypeToMeta = map[DatasetType]MetaDatasetType{
	DatasetCES: MetaExome,
	DatasetWES: MetaExome,
	DatasetRES: MetaExome,
	DatasetCGS: MetaGenome,
	DatasetWGS: MetaGenome,
	DatasetRGS: MetaGenome,
	DatasetRRS: MetaRNA,
	DatasetRLM: MetaRNA,
	DatasetRMM: MetaRNA,
	DatasetRTA: MetaRNA,
	DatasetOTH: MetaOther,
}

// MetaType returns the coarse class of a dataset type. Unmapped types
// collapse to MetaOther.
func (d DatasetType) MetaType() MetaDatasetType {
	if m, ok := datasetTypeToMeta[d]; ok {
		return m
	}

	return MetaOther
}

// Valid reports membership in the closed set.
func (s Sex) Valid() bool              { return contains(SexValues, string(s)) }
func (p ParticipantType) Valid() bool  { return contains(ParticipantTypeValues, string(p)) }
func (ts TissueSampleType) Valid() bool {
	return contains(TissueSampleTypeValues, string(ts))
}
func (tp TissueProcessing) Valid() bool {
	return contains(TissueProcessingValues, string(tp))
}
func (d DatasetType) Valid() bool      { return contains(DatasetTypeValues, string(d)) }
func (c DatasetCondition) Valid() bool { return contains(DatasetConditionValues, string(c)) }
func (r ReadType) Valid() bool         { return contains(ReadTypeValues, string(r)) }
func (a AnalysisState) Valid() bool    { return contains(AnalysisStateValues, string(a)) }
func (m MetaDatasetType) Valid() bool  { return contains(MetaDatasetTypeValues, string(m)) }

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}

	return false
}

// InvalidEnum builds the Invalid error reported when a value falls outside a
// closed set; the message cites the allowed values.
func InvalidEnum(op, field, value string, allowed []string) error {
	return apperr.Invalid(op, "%s %q is not one of [%s]", field, value, strings.Join(allowed, ", "))
}
