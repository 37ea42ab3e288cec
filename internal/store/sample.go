package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/scope"
)

// TissueSampleRequest is the payload for creating a tissue sample.
type TissueSampleRequest struct {
	ParticipantID    uint64     `json:"participant_id" validate:"required"`
	SampleType       string     `json:"sample_type" validate:"omitempty"`
	TissueProcessing string     `json:"tissue_processing" validate:"omitempty"`
	ExtractionDate   *time.Time `json:"extraction_date"`
	Notes            string     `json:"notes"`
}

// TissueSamplePatch carries the updatable sample fields; nil means keep.
type TissueSamplePatch struct {
	SampleType       *string    `json:"sample_type"`
	TissueProcessing *string    `json:"tissue_processing"`
	ExtractionDate   *time.Time `json:"extraction_date"`
	Notes            *string    `json:"notes"`
}

// CreateTissueSample adds a sample under a participant the viewer can see.
func (s *Service) CreateTissueSample(viewer, actor *models.User, req TissueSampleRequest) (*models.TissueSample, error) {
	const op = "store.CreateTissueSample"

	sampleType := models.TissueSampleType(req.SampleType)
	if req.SampleType != "" && !sampleType.Valid() {
		return nil, models.InvalidEnum(op, "sample_type", req.SampleType, models.TissueSampleTypeValues)
	}

	processing := models.TissueProcessing(req.TissueProcessing)
	if req.TissueProcessing != "" && !processing.Valid() {
		return nil, models.InvalidEnum(op, "tissue_processing", req.TissueProcessing, models.TissueProcessingValues)
	}

	if _, err := s.GetParticipant(viewer, req.ParticipantID); err != nil {
		return nil, err
	}

	sample := &models.TissueSample{
		ParticipantID:    req.ParticipantID,
		SampleType:       sampleType,
		TissueProcessing: processing,
		ExtractionDate:   req.ExtractionDate,
		Notes:            req.Notes,
	}
	sample.CreatedByID = actor.ID
	sample.UpdatedByID = actor.ID

	err := s.inTx(op, func(tx *gorm.DB) error {
		return tx.Create(sample).Error
	})
	if err != nil {
		return nil, err
	}

	return sample, nil
}

// GetTissueSample returns one sample under the viewer's projection.
func (s *Service) GetTissueSample(viewer *models.User, id uint64) (*models.TissueSample, error) {
	const op = "store.GetTissueSample"

	var sample models.TissueSample

	err := scope.TissueSamples(s.db, *viewer).
		Distinct("tissue_samples.*").
		Preload("Participant").
		Preload("Datasets").
		Where("tissue_samples.id = ?", id).
		First(&sample).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "tissue sample %d not found", id)
	}

	if err != nil {
		return nil, apperr.Transient(op, err)
	}

	return &sample, nil
}

// UpdateTissueSample applies a partial update.
func (s *Service) UpdateTissueSample(viewer, actor *models.User, id uint64, patch TissueSamplePatch) (*models.TissueSample, error) {
	const op = "store.UpdateTissueSample"

	sample, err := s.GetTissueSample(viewer, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_by": actor.ID}

	if patch.SampleType != nil {
		sampleType := models.TissueSampleType(*patch.SampleType)
		if !sampleType.Valid() {
			return nil, models.InvalidEnum(op, "sample_type", *patch.SampleType, models.TissueSampleTypeValues)
		}

		updates["sample_type"] = sampleType
	}

	if patch.TissueProcessing != nil {
		processing := models.TissueProcessing(*patch.TissueProcessing)
		if !processing.Valid() {
			return nil, models.InvalidEnum(op, "tissue_processing", *patch.TissueProcessing, models.TissueProcessingValues)
		}

		updates["tissue_processing"] = processing
	}

	if patch.ExtractionDate != nil {
		updates["extraction_date"] = *patch.ExtractionDate
	}

	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	err = s.inTx(op, func(tx *gorm.DB) error {
		return tx.Model(sample).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return sample, nil
}

// DeleteTissueSample removes a sample. Refused while any dataset exists.
func (s *Service) DeleteTissueSample(viewer *models.User, id uint64) error {
	const op = "store.DeleteTissueSample"

	sample, err := s.GetTissueSample(viewer, id)
	if err != nil {
		return err
	}

	return s.inTx(op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Dataset{}).
			Where("tissue_sample_id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return apperr.Conflict(op, "tissue sample %d still has %d datasets", sample.ID, count)
		}

		return tx.Delete(sample).Error
	})
}
