package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/db/testdb"
)

type fixture struct {
	db  *gorm.DB
	svc *Service

	admin  *models.User
	member *models.User

	group models.Group
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{db: testdb.Open(t)}
	f.svc = NewService(f.db)

	f.admin = &models.User{Username: "admin", IsAdmin: true}
	f.member = &models.User{Username: "member"}
	require.NoError(t, f.db.Create(f.admin).Error)
	require.NoError(t, f.db.Create(f.member).Error)

	f.group = models.Group{Code: "ach", Name: "ACH"}
	require.NoError(t, f.db.Create(&f.group).Error)
	require.NoError(t, f.db.Create(&models.UserGroup{UserID: f.member.ID, GroupID: f.group.ID}).Error)

	return f
}

// tree creates family -> participant -> sample through the façade and returns
// the sample, ready for datasets.
func (f *fixture) tree(t *testing.T, codename string) *models.TissueSample {
	t.Helper()

	family, err := f.svc.CreateFamily(f.admin, FamilyRequest{Codename: codename})
	require.NoError(t, err)

	participant, err := f.svc.CreateParticipant(f.admin, f.admin, ParticipantRequest{
		FamilyID: family.ID, Codename: codename + ".PRO",
		Sex: string(models.SexFemale), ParticipantType: string(models.ParticipantProband),
	})
	require.NoError(t, err)

	sample, err := f.svc.CreateTissueSample(f.admin, f.admin, TissueSampleRequest{
		ParticipantID: participant.ID, SampleType: string(models.TissueBlood),
	})
	require.NoError(t, err)

	return sample
}

func (f *fixture) dataset(t *testing.T, sampleID uint64, dtype models.DatasetType) *models.Dataset {
	t.Helper()

	dataset, err := f.svc.CreateDataset(f.admin, f.admin, DatasetRequest{
		TissueSampleID: sampleID,
		DatasetType:    string(dtype),
		GroupIDs:       []uint64{f.group.ID},
	})
	require.NoError(t, err)

	return dataset
}

func (f *fixture) pipeline(t *testing.T, name string, accepts ...models.MetaDatasetType) *models.Pipeline {
	t.Helper()

	pipeline := &models.Pipeline{Name: name, Version: "1.0"}
	require.NoError(t, f.db.Create(pipeline).Error)

	for _, meta := range accepts {
		require.NoError(t, f.db.Create(&models.PipelineDatasetType{
			PipelineID: pipeline.ID, SupportedMetaDatasetType: meta,
		}).Error)
	}

	return pipeline
}

func TestCreateFamilyConflict(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateFamily(f.admin, FamilyRequest{Codename: "FAM01"})
	require.NoError(t, err)

	_, err = f.svc.CreateFamily(f.admin, FamilyRequest{Codename: "FAM01"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestParticipantCodenameUniquePerFamily(t *testing.T) {
	f := setup(t)

	fam1, err := f.svc.CreateFamily(f.admin, FamilyRequest{Codename: "FAM01"})
	require.NoError(t, err)
	fam2, err := f.svc.CreateFamily(f.admin, FamilyRequest{Codename: "FAM02"})
	require.NoError(t, err)

	_, err = f.svc.CreateParticipant(f.admin, f.admin, ParticipantRequest{FamilyID: fam1.ID, Codename: "PRO"})
	require.NoError(t, err)

	// same codename in another family is fine
	_, err = f.svc.CreateParticipant(f.admin, f.admin, ParticipantRequest{FamilyID: fam2.ID, Codename: "PRO"})
	require.NoError(t, err)

	_, err = f.svc.CreateParticipant(f.admin, f.admin, ParticipantRequest{FamilyID: fam1.ID, Codename: "PRO"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDeleteFamilyRefusedWhileOccupied(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")

	var participant models.Participant
	require.NoError(t, f.db.First(&participant, "id = ?", sample.ParticipantID).Error)

	err := f.svc.DeleteFamily(f.admin, participant.FamilyID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	err = f.svc.DeleteParticipant(f.admin, participant.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestVisibilityThroughFacade(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	dataset := f.dataset(t, sample.ID, models.DatasetWES)

	// member shares a group with the dataset
	got, err := f.svc.GetDataset(f.member, dataset.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TissueSample)
	require.NotNil(t, got.TissueSample.Participant)
	require.NotNil(t, got.TissueSample.Participant.Family)
	assert.Equal(t, "FAM01", got.TissueSample.Participant.Family.Codename)
	assert.Len(t, got.Groups, 1)

	// a stranger sees nothing, not even existence
	stranger := &models.User{Username: "stranger"}
	require.NoError(t, f.db.Create(stranger).Error)

	_, err = f.svc.GetDataset(stranger, dataset.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.GetTissueSample(stranger, sample.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateDatasetRequiresGroup(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")

	_, err := f.svc.CreateDataset(f.admin, f.admin, DatasetRequest{
		TissueSampleID: sample.ID, DatasetType: "WES", GroupIDs: []uint64{9999},
	})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.CreateDataset(f.admin, f.admin, DatasetRequest{
		TissueSampleID: sample.ID, DatasetType: "XXX", GroupIDs: []uint64{f.group.ID},
	})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

func TestRNASeqDiscriminator(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")

	rna := f.dataset(t, sample.ID, models.DatasetRRS)
	assert.True(t, rna.IsRNASeq())

	wes := f.dataset(t, sample.ID, models.DatasetWES)
	assert.False(t, wes.IsRNASeq())

	// refinement fields are rejected on the base shape
	genes := "MYH7"
	_, err := f.svc.CreateDataset(f.admin, f.admin, DatasetRequest{
		TissueSampleID: sample.ID, DatasetType: "WES",
		GroupIDs: []uint64{f.group.ID}, CandidateGenes: &genes,
	})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = f.svc.UpdateDataset(f.admin, f.admin, wes.ID, DatasetPatch{CandidateGenes: &genes})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	// the shape is fixed at creation: WES cannot become RRS
	rrs := "RRS"
	_, err = f.svc.UpdateDataset(f.admin, f.admin, wes.ID, DatasetPatch{DatasetType: &rrs})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	// within-shape type moves are allowed
	wgs := "WGS"
	_, err = f.svc.UpdateDataset(f.admin, f.admin, wes.ID, DatasetPatch{DatasetType: &wgs})
	require.NoError(t, err)
}

func TestLinkFileMultiplexing(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	d1 := f.dataset(t, sample.ID, models.DatasetWES)
	d2 := f.dataset(t, sample.ID, models.DatasetWGS)

	_, err := f.svc.LinkFile(f.admin, d1.ID, "/run1/a.fastq.gz", false)
	require.NoError(t, err)

	// second dataset refused for a non-multiplexed file
	_, err = f.svc.LinkFile(f.admin, d2.ID, "/run1/a.fastq.gz", false)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// a multiplexed file spans datasets
	mux, err := f.svc.LinkFile(f.admin, d1.ID, "/run1/pool.fastq.gz", true)
	require.NoError(t, err)
	_, err = f.svc.LinkFile(f.admin, d2.ID, "/run1/pool.fastq.gz", true)
	require.NoError(t, err)

	// unlinking one side keeps the file while a link remains
	require.NoError(t, f.svc.UnlinkFile(f.admin, d1.ID, mux.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.File{}).Where("id = ?", mux.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// the last unlink deletes the file row
	require.NoError(t, f.svc.UnlinkFile(f.admin, d2.ID, mux.ID))
	require.NoError(t, f.db.Model(&models.File{}).Where("id = ?", mux.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteDatasetCascades(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	dataset := f.dataset(t, sample.ID, models.DatasetWES)

	_, err := f.svc.LinkFile(f.admin, dataset.ID, "/run1/a.fastq.gz", false)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDataset(f.admin, dataset.ID))

	// the whole branch is gone: dataset, orphan file, sample, participant,
	// family
	for _, probe := range []struct {
		model interface{}
		name  string
	}{
		{&models.Dataset{}, "datasets"},
		{&models.File{}, "files"},
		{&models.TissueSample{}, "tissue_samples"},
		{&models.Participant{}, "participants"},
		{&models.Family{}, "families"},
	} {
		var count int64
		require.NoError(t, f.db.Model(probe.model).Count(&count).Error)
		assert.Zero(t, count, probe.name)
	}
}

func TestDeleteDatasetStopsAtOccupiedParent(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	d1 := f.dataset(t, sample.ID, models.DatasetWES)
	f.dataset(t, sample.ID, models.DatasetWGS)

	require.NoError(t, f.svc.DeleteDataset(f.admin, d1.ID))

	// the sibling dataset keeps the sample and everything above it
	var count int64
	require.NoError(t, f.db.Model(&models.TissueSample{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	require.NoError(t, f.db.Model(&models.Family{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeleteDatasetRefusedWithAnalyses(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	dataset := f.dataset(t, sample.ID, models.DatasetWES)
	pipeline := f.pipeline(t, "crg", models.MetaExome)

	_, err := f.svc.CreateAnalysis(f.admin, f.admin, AnalysisRequest{
		PipelineID: pipeline.ID, DatasetIDs: []uint64{dataset.ID},
	})
	require.NoError(t, err)

	err = f.svc.DeleteDataset(f.admin, dataset.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestAnalysisAdmissibility(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	d1 := f.dataset(t, sample.ID, models.DatasetWES)
	d2 := f.dataset(t, sample.ID, models.DatasetWGS)
	d3 := f.dataset(t, sample.ID, models.DatasetRES)

	p1 := f.pipeline(t, "exome-pipe", models.MetaExome)
	p2 := f.pipeline(t, "genome-pipe", models.MetaGenome)

	// two exome datasets fit the exome pipeline
	analysis, err := f.svc.CreateAnalysis(f.member, f.member, AnalysisRequest{
		PipelineID: p1.ID, DatasetIDs: []uint64{d1.ID, d3.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisRequested, analysis.State)
	assert.Equal(t, f.member.ID, analysis.RequesterID)
	assert.Len(t, analysis.Datasets, 2)

	// mixing in a genome dataset names the offender
	_, err = f.svc.CreateAnalysis(f.member, f.member, AnalysisRequest{
		PipelineID: p1.ID, DatasetIDs: []uint64{d1.ID, d2.ID},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "WGS")

	_, err = f.svc.CreateAnalysis(f.member, f.member, AnalysisRequest{
		PipelineID: p2.ID, DatasetIDs: []uint64{d2.ID},
	})
	require.NoError(t, err)
}

func TestAnalysisOverInvisibleDataset(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	dataset := f.dataset(t, sample.ID, models.DatasetWES)
	pipeline := f.pipeline(t, "crg", models.MetaExome)

	stranger := &models.User{Username: "stranger"}
	require.NoError(t, f.db.Create(stranger).Error)

	_, err := f.svc.CreateAnalysis(stranger, stranger, AnalysisRequest{
		PipelineID: pipeline.ID, DatasetIDs: []uint64{dataset.ID},
	})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAnalysisStateMachine(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	dataset := f.dataset(t, sample.ID, models.DatasetWES)
	pipeline := f.pipeline(t, "crg", models.MetaExome)

	analysis, err := f.svc.CreateAnalysis(f.member, f.member, AnalysisRequest{
		PipelineID: pipeline.ID, DatasetIDs: []uint64{dataset.ID},
	})
	require.NoError(t, err)

	running := string(models.AnalysisRunning)
	cancelled := string(models.AnalysisCancelled)
	done := string(models.AnalysisDone)

	// a non-admin cannot start a run
	_, err = f.svc.UpdateAnalysis(f.member, f.member, analysis.ID, AnalysisPatch{State: &running})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// an admin can; the start time is stamped once
	updated, err := f.svc.UpdateAnalysis(f.admin, f.admin, analysis.ID, AnalysisPatch{State: &running})
	require.NoError(t, err)

	reloaded, err := f.svc.GetAnalysis(f.admin, updated.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisRunning, reloaded.State)
	assert.NotNil(t, reloaded.Started)

	// the requester may still cancel
	_, err = f.svc.UpdateAnalysis(f.member, f.member, analysis.ID, AnalysisPatch{State: &cancelled})
	require.NoError(t, err)

	// finishing stamps the end time
	_, err = f.svc.UpdateAnalysis(f.admin, f.admin, analysis.ID, AnalysisPatch{State: &done})
	require.NoError(t, err)

	reloaded, err = f.svc.GetAnalysis(f.admin, analysis.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.Finished)
}

func TestDeleteAnalysis(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	dataset := f.dataset(t, sample.ID, models.DatasetWES)
	pipeline := f.pipeline(t, "crg", models.MetaExome)

	analysis, err := f.svc.CreateAnalysis(f.member, f.member, AnalysisRequest{
		PipelineID: pipeline.ID, DatasetIDs: []uint64{dataset.ID},
	})
	require.NoError(t, err)

	// another user in the same group sees the analysis but may not delete it
	peer := &models.User{Username: "peer"}
	require.NoError(t, f.db.Create(peer).Error)
	require.NoError(t, f.db.Create(&models.UserGroup{UserID: peer.ID, GroupID: f.group.ID}).Error)

	err = f.svc.DeleteAnalysis(peer, analysis.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// a started analysis cannot be deleted, only cancelled
	running := string(models.AnalysisRunning)
	_, err = f.svc.UpdateAnalysis(f.admin, f.admin, analysis.ID, AnalysisPatch{State: &running})
	require.NoError(t, err)

	err = f.svc.DeleteAnalysis(f.member, analysis.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	requested := string(models.AnalysisRequested)
	_, err = f.svc.UpdateAnalysis(f.admin, f.admin, analysis.ID, AnalysisPatch{State: &requested})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAnalysis(f.member, analysis.ID))

	_, err = f.svc.GetAnalysis(f.admin, analysis.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAnalysisVariants(t *testing.T) {
	f := setup(t)

	sample := f.tree(t, "FAM01")
	dataset := f.dataset(t, sample.ID, models.DatasetWES)
	pipeline := f.pipeline(t, "crg", models.MetaExome)

	analysis, err := f.svc.CreateAnalysis(f.member, f.member, AnalysisRequest{
		PipelineID: pipeline.ID, DatasetIDs: []uint64{dataset.ID},
	})
	require.NoError(t, err)

	variant := models.Variant{
		AnalysisID: analysis.ID, Chromosome: "7", Position: 117559590,
		Reference: "A", Alt: "G",
	}
	require.NoError(t, f.db.Create(&variant).Error)
	require.NoError(t, f.db.Create(&models.Genotype{
		VariantID: variant.ID, DatasetID: dataset.ID, Zygosity: "Het",
	}).Error)

	variants, err := f.svc.AnalysisVariants(f.member, analysis.ID)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Len(t, variants[0].Genotypes, 1)

	// visibility follows the analysis projection
	stranger := &models.User{Username: "stranger"}
	require.NoError(t, f.db.Create(stranger).Error)

	_, err = f.svc.AnalysisVariants(stranger, analysis.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDecodeStrict(t *testing.T) {
	var req FamilyRequest

	require.NoError(t, DecodeStrict([]byte(`{"codename":"FAM01"}`), &req))
	assert.Equal(t, "FAM01", req.Codename)

	// each case decodes into a fresh struct, a populated one would satisfy
	// the required tags on its own

	// unknown fields never reach the database
	err := DecodeStrict([]byte(`{"codename":"FAM01","admin":true}`), &FamilyRequest{})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	err = DecodeStrict([]byte(`{}`), &FamilyRequest{})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	err = DecodeStrict([]byte(`{"codename":"FAM01"} trailing`), &FamilyRequest{})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}
