package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/scope"
)

// DatasetRequest is the payload for creating a dataset. Every dataset is
// linked to at least one permission group at birth; an unlinked dataset would
// be invisible to everyone but administrators.
type DatasetRequest struct {
	TissueSampleID uint64   `json:"tissue_sample_id" validate:"required"`
	DatasetType    string   `json:"dataset_type" validate:"required"`
	Condition      string   `json:"condition" validate:"omitempty"`
	GroupIDs       []uint64 `json:"group_ids" validate:"required,min=1"`

	ExtractionProtocol string     `json:"extraction_protocol" validate:"max=100"`
	Capture            string     `json:"capture" validate:"max=100"`
	LibraryPrepMethod  string     `json:"library_prep_method" validate:"max=50"`
	LibraryPrepDate    *time.Time `json:"library_prep_date"`
	ReadLength         *int       `json:"read_length"`
	ReadType           string     `json:"read_type" validate:"omitempty"`
	SequencingID       string     `json:"sequencing_id" validate:"max=50"`
	SequencingCentre   string     `json:"sequencing_centre" validate:"max=100"`
	SequencingDate     *time.Time `json:"sequencing_date"`
	Batch              string     `json:"batch" validate:"max=50"`
	Notes              string     `json:"notes"`

	// RNA-seq refinement, only accepted for RNA dataset types.
	CandidateGenes *string `json:"candidate_genes"`
	VCFAvailable   *bool   `json:"vcf_available"`
}

// DatasetPatch carries the updatable dataset fields; nil means keep.
type DatasetPatch struct {
	DatasetType *string   `json:"dataset_type"`
	Condition   *string   `json:"condition"`
	GroupIDs    *[]uint64 `json:"group_ids"`

	ExtractionProtocol *string    `json:"extraction_protocol"`
	Capture            *string    `json:"capture"`
	LibraryPrepMethod  *string    `json:"library_prep_method"`
	LibraryPrepDate    *time.Time `json:"library_prep_date"`
	ReadLength         *int       `json:"read_length"`
	ReadType           *string    `json:"read_type"`
	SequencingID       *string    `json:"sequencing_id"`
	SequencingCentre   *string    `json:"sequencing_centre"`
	SequencingDate     *time.Time `json:"sequencing_date"`
	Batch              *string    `json:"batch"`
	Notes              *string    `json:"notes"`

	CandidateGenes *string `json:"candidate_genes"`
	VCFAvailable   *bool   `json:"vcf_available"`
}

// CreateDataset adds a dataset to a tissue sample the viewer can see. RNA
// dataset types produce the RNA-seq row shape; the discriminator is fixed at
// creation.
func (s *Service) CreateDataset(viewer, actor *models.User, req DatasetRequest) (*models.Dataset, error) {
	const op = "store.CreateDataset"

	dtype := models.DatasetType(req.DatasetType)
	if !dtype.Valid() {
		return nil, models.InvalidEnum(op, "dataset_type", req.DatasetType, models.DatasetTypeValues)
	}

	condition := models.DatasetCondition(req.Condition)
	if req.Condition != "" && !condition.Valid() {
		return nil, models.InvalidEnum(op, "condition", req.Condition, models.DatasetConditionValues)
	}

	readType := models.ReadType(req.ReadType)
	if req.ReadType != "" && !readType.Valid() {
		return nil, models.InvalidEnum(op, "read_type", req.ReadType, models.ReadTypeValues)
	}

	discriminator := models.DiscriminatorDataset
	if dtype.MetaType() == models.MetaRNA {
		discriminator = models.DiscriminatorRNASeqDataset
	}

	if discriminator != models.DiscriminatorRNASeqDataset && (req.CandidateGenes != nil || req.VCFAvailable != nil) {
		return nil, apperr.Invalid(op, "candidate_genes and vcf_available apply to RNA-seq datasets only")
	}

	var groups []models.Group
	if err := s.db.Where("id IN ?", req.GroupIDs).Find(&groups).Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	if len(groups) != len(req.GroupIDs) {
		return nil, apperr.Invalid(op, "one or more groups do not exist")
	}

	if _, err := s.GetTissueSample(viewer, req.TissueSampleID); err != nil {
		return nil, err
	}

	dataset := &models.Dataset{
		TissueSampleID:     req.TissueSampleID,
		Discriminator:      discriminator,
		DatasetType:        dtype,
		Condition:          condition,
		ExtractionProtocol: req.ExtractionProtocol,
		Capture:            req.Capture,
		LibraryPrepMethod:  req.LibraryPrepMethod,
		LibraryPrepDate:    req.LibraryPrepDate,
		ReadLength:         req.ReadLength,
		ReadType:           readType,
		SequencingID:       req.SequencingID,
		SequencingCentre:   req.SequencingCentre,
		SequencingDate:     req.SequencingDate,
		Batch:              req.Batch,
		Notes:              req.Notes,
		CandidateGenes:     req.CandidateGenes,
		VCFAvailable:       req.VCFAvailable,
		Groups:             groups,
	}
	dataset.CreatedByID = actor.ID
	dataset.UpdatedByID = actor.ID

	err := s.inTx(op, func(tx *gorm.DB) error {
		return tx.Create(dataset).Error
	})
	if err != nil {
		return nil, err
	}

	return dataset, nil
}

// GetDataset returns one dataset under the viewer's projection, with the full
// ancestry, groups and files loaded.
func (s *Service) GetDataset(viewer *models.User, id uint64) (*models.Dataset, error) {
	const op = "store.GetDataset"

	var dataset models.Dataset

	err := scope.Datasets(s.db, *viewer).
		Distinct("datasets.*").
		Preload("TissueSample.Participant.Family").
		Preload("Groups").
		Preload("Files").
		Where("datasets.id = ?", id).
		First(&dataset).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "dataset %d not found", id)
	}

	if err != nil {
		return nil, apperr.Transient(op, err)
	}

	return &dataset, nil
}

// UpdateDataset applies a partial update. The dataset type may only move
// within the row shape chosen at creation, and group links never drop to zero.
func (s *Service) UpdateDataset(viewer, actor *models.User, id uint64, patch DatasetPatch) (*models.Dataset, error) {
	const op = "store.UpdateDataset"

	dataset, err := s.GetDataset(viewer, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_by": actor.ID}

	if patch.DatasetType != nil {
		dtype := models.DatasetType(*patch.DatasetType)
		if !dtype.Valid() {
			return nil, models.InvalidEnum(op, "dataset_type", *patch.DatasetType, models.DatasetTypeValues)
		}

		isRNA := dtype.MetaType() == models.MetaRNA
		if isRNA != dataset.IsRNASeq() {
			return nil, apperr.Invalid(op, "dataset type %s does not fit the %s row shape", dtype, dataset.Discriminator)
		}

		updates["dataset_type"] = dtype
	}

	if patch.Condition != nil {
		condition := models.DatasetCondition(*patch.Condition)
		if !condition.Valid() {
			return nil, models.InvalidEnum(op, "condition", *patch.Condition, models.DatasetConditionValues)
		}

		updates["condition"] = condition
	}

	if patch.ReadType != nil {
		readType := models.ReadType(*patch.ReadType)
		if !readType.Valid() {
			return nil, models.InvalidEnum(op, "read_type", *patch.ReadType, models.ReadTypeValues)
		}

		updates["read_type"] = readType
	}

	if !dataset.IsRNASeq() && (patch.CandidateGenes != nil || patch.VCFAvailable != nil) {
		return nil, apperr.Invalid(op, "candidate_genes and vcf_available apply to RNA-seq datasets only")
	}

	if patch.CandidateGenes != nil {
		updates["candidate_genes"] = *patch.CandidateGenes
	}

	if patch.VCFAvailable != nil {
		updates["vcf_available"] = *patch.VCFAvailable
	}

	if patch.ExtractionProtocol != nil {
		updates["extraction_protocol"] = *patch.ExtractionProtocol
	}

	if patch.Capture != nil {
		updates["capture"] = *patch.Capture
	}

	if patch.LibraryPrepMethod != nil {
		updates["library_prep_method"] = *patch.LibraryPrepMethod
	}

	if patch.LibraryPrepDate != nil {
		updates["library_prep_date"] = *patch.LibraryPrepDate
	}

	if patch.ReadLength != nil {
		updates["read_length"] = *patch.ReadLength
	}

	if patch.SequencingID != nil {
		updates["sequencing_id"] = *patch.SequencingID
	}

	if patch.SequencingCentre != nil {
		updates["sequencing_centre"] = *patch.SequencingCentre
	}

	if patch.SequencingDate != nil {
		updates["sequencing_date"] = *patch.SequencingDate
	}

	if patch.Batch != nil {
		updates["batch"] = *patch.Batch
	}

	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	var groups []models.Group
	if patch.GroupIDs != nil {
		if len(*patch.GroupIDs) == 0 {
			return nil, apperr.Invalid(op, "a dataset must belong to at least one group")
		}

		if err := s.db.Where("id IN ?", *patch.GroupIDs).Find(&groups).Error; err != nil {
			return nil, apperr.Transient(op, err)
		}

		if len(groups) != len(*patch.GroupIDs) {
			return nil, apperr.Invalid(op, "one or more groups do not exist")
		}
	}

	err = s.inTx(op, func(tx *gorm.DB) error {
		if err := tx.Model(dataset).Updates(updates).Error; err != nil {
			return err
		}

		if patch.GroupIDs != nil {
			return tx.Model(dataset).Association("Groups").Replace(groups)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dataset, nil
}

// LinkFile attaches an object-store path to a dataset, creating the file row
// on first use. A non-multiplexed file refuses a second dataset.
func (s *Service) LinkFile(viewer *models.User, datasetID uint64, path string, multiplexed bool) (*models.File, error) {
	const op = "store.LinkFile"

	if path == "" {
		return nil, apperr.Invalid(op, "file path must not be empty")
	}

	if _, err := s.GetDataset(viewer, datasetID); err != nil {
		return nil, err
	}

	var file models.File

	err := s.inTx(op, func(tx *gorm.DB) error {
		if err := tx.Where(models.File{Path: path}).
			Attrs(models.File{Multiplexed: multiplexed}).
			FirstOrCreate(&file).Error; err != nil {
			return err
		}

		var links int64
		if err := tx.Model(&models.DatasetFile{}).
			Where("file_id = ? AND dataset_id <> ?", file.ID, datasetID).
			Count(&links).Error; err != nil {
			return err
		}

		if links > 0 && !file.Multiplexed {
			return apperr.Conflict(op, "file %q is not multiplexed and is already linked to another dataset", path)
		}

		link := models.DatasetFile{DatasetID: datasetID, FileID: file.ID}

		return tx.Where(link).FirstOrCreate(&link).Error
	})
	if err != nil {
		return nil, err
	}

	return &file, nil
}

// UnlinkFile detaches a file from a dataset and deletes the file row when the
// last link is gone.
func (s *Service) UnlinkFile(viewer *models.User, datasetID, fileID uint64) error {
	const op = "store.UnlinkFile"

	if _, err := s.GetDataset(viewer, datasetID); err != nil {
		return err
	}

	return s.inTx(op, func(tx *gorm.DB) error {
		res := tx.Where("dataset_id = ? AND file_id = ?", datasetID, fileID).
			Delete(&models.DatasetFile{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return apperr.NotFound(op, "file %d is not linked to dataset %d", fileID, datasetID)
		}

		return deleteFileIfOrphaned(tx, fileID)
	})
}

// DeleteDataset removes a dataset, its orphaned files, and every ancestor
// that becomes childless. Refused while analyses reference the dataset.
func (s *Service) DeleteDataset(viewer *models.User, id uint64) error {
	const op = "store.DeleteDataset"

	dataset, err := s.GetDataset(viewer, id)
	if err != nil {
		return err
	}

	return s.inTx(op, func(tx *gorm.DB) error {
		var analyses int64
		if err := tx.Model(&models.DatasetAnalysis{}).
			Where("dataset_id = ?", id).
			Count(&analyses).Error; err != nil {
			return err
		}

		if analyses > 0 {
			return apperr.Conflict(op, "dataset %d still has %d analyses", id, analyses)
		}

		var fileIDs []uint64
		if err := tx.Model(&models.DatasetFile{}).
			Where("dataset_id = ?", id).
			Pluck("file_id", &fileIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("dataset_id = ?", id).Delete(&models.DatasetFile{}).Error; err != nil {
			return err
		}

		for _, fileID := range fileIDs {
			if err := deleteFileIfOrphaned(tx, fileID); err != nil {
				return err
			}
		}

		if err := tx.Where("dataset_id = ?", id).Delete(&models.GroupDataset{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Dataset{}, id).Error; err != nil {
			return err
		}

		return cascadeEmptyAncestors(tx, dataset.TissueSampleID)
	})
}

// deleteFileIfOrphaned removes a file row once no dataset links remain.
func deleteFileIfOrphaned(tx *gorm.DB, fileID uint64) error {
	var links int64
	if err := tx.Model(&models.DatasetFile{}).
		Where("file_id = ?", fileID).
		Count(&links).Error; err != nil {
		return err
	}

	if links > 0 {
		return nil
	}

	return tx.Delete(&models.File{}, fileID).Error
}

// cascadeEmptyAncestors walks sample -> participant -> family after a dataset
// deletion, removing each level that has become childless.
func cascadeEmptyAncestors(tx *gorm.DB, sampleID uint64) error {
	var sample models.TissueSample
	if err := tx.First(&sample, sampleID).Error; err != nil {
		return err
	}

	var datasets int64
	if err := tx.Model(&models.Dataset{}).
		Where("tissue_sample_id = ?", sampleID).
		Count(&datasets).Error; err != nil {
		return err
	}

	if datasets > 0 {
		return nil
	}

	if err := tx.Delete(&sample).Error; err != nil {
		return err
	}

	var participant models.Participant
	if err := tx.First(&participant, sample.ParticipantID).Error; err != nil {
		return err
	}

	var samples int64
	if err := tx.Model(&models.TissueSample{}).
		Where("participant_id = ?", participant.ID).
		Count(&samples).Error; err != nil {
		return err
	}

	if samples > 0 {
		return nil
	}

	if err := tx.Delete(&participant).Error; err != nil {
		return err
	}

	var participants int64
	if err := tx.Model(&models.Participant{}).
		Where("family_id = ?", participant.FamilyID).
		Count(&participants).Error; err != nil {
		return err
	}

	if participants > 0 {
		return nil
	}

	return tx.Delete(&models.Family{}, participant.FamilyID).Error
}
