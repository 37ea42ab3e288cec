package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/scope"
)

// AnalysisRequest is the payload for requesting an analysis.
type AnalysisRequest struct {
	PipelineID uint64   `json:"pipeline_id" validate:"required"`
	DatasetIDs []uint64 `json:"dataset_ids" validate:"required,min=1"`
	Notes      string   `json:"notes"`
}

// AnalysisPatch carries the updatable analysis fields; nil means keep.
type AnalysisPatch struct {
	State       *string `json:"state"`
	AssigneeID  *uint64 `json:"assignee_id"`
	SchedulerID *string `json:"scheduler_id"`
	ResultPath  *string `json:"result_path"`
	Notes       *string `json:"notes"`
}

// CreateAnalysis requests a pipeline run over a set of datasets. Every
// dataset must be visible to the viewer and its meta type must be accepted by
// the pipeline; the first inadmissible dataset is named in the error.
func (s *Service) CreateAnalysis(viewer, actor *models.User, req AnalysisRequest) (*models.Analysis, error) {
	const op = "store.CreateAnalysis"

	var pipeline models.Pipeline

	err := s.db.Preload("SupportedTypes").First(&pipeline, req.PipelineID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "pipeline %d not found", req.PipelineID)
	}

	if err != nil {
		return nil, apperr.Transient(op, err)
	}

	var datasets []models.Dataset
	if err := scope.Datasets(s.db, *viewer).
		Distinct("datasets.*").
		Where("datasets.id IN ?", req.DatasetIDs).
		Find(&datasets).Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	if len(datasets) != len(req.DatasetIDs) {
		seen := make(map[uint64]bool, len(datasets))
		for _, d := range datasets {
			seen[d.ID] = true
		}

		for _, id := range req.DatasetIDs {
			if !seen[id] {
				return nil, apperr.NotFound(op, "dataset %d not found", id)
			}
		}
	}

	for _, d := range datasets {
		meta := d.DatasetType.MetaType()
		if !pipeline.Accepts(meta) {
			return nil, apperr.Invalid(op,
				"dataset %d has type %s (%s), which pipeline %s %s does not accept",
				d.ID, d.DatasetType, meta, pipeline.Name, pipeline.Version)
		}
	}

	analysis := &models.Analysis{
		State:       models.AnalysisRequested,
		PipelineID:  pipeline.ID,
		RequesterID: viewer.ID,
		UpdatedByID: actor.ID,
		Notes:       req.Notes,
		Datasets:    datasets,
	}

	err = s.inTx(op, func(tx *gorm.DB) error {
		return tx.Create(analysis).Error
	})
	if err != nil {
		return nil, err
	}

	return analysis, nil
}

// GetAnalysis returns one analysis under the viewer's projection, with its
// datasets and pipeline loaded.
func (s *Service) GetAnalysis(viewer *models.User, id uint64) (*models.Analysis, error) {
	const op = "store.GetAnalysis"

	var analysis models.Analysis

	err := scope.Analyses(s.db, *viewer).
		Distinct("analyses.*").
		Preload("Datasets").
		Preload("Pipeline.SupportedTypes").
		Where("analyses.id = ?", id).
		First(&analysis).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "analysis %d not found", id)
	}

	if err != nil {
		return nil, apperr.Transient(op, err)
	}

	return &analysis, nil
}

// UpdateAnalysis applies a partial update. Non-administrators may only move
// the state to Cancelled; assignee, scheduler id and result path are
// administrator fields.
func (s *Service) UpdateAnalysis(viewer, actor *models.User, id uint64, patch AnalysisPatch) (*models.Analysis, error) {
	const op = "store.UpdateAnalysis"

	analysis, err := s.GetAnalysis(viewer, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_by": actor.ID}

	if patch.State != nil {
		state := models.AnalysisState(*patch.State)
		if !state.Valid() {
			return nil, models.InvalidEnum(op, "state", *patch.State, models.AnalysisStateValues)
		}

		if !actor.IsAdmin && state != models.AnalysisCancelled {
			return nil, apperr.Forbidden(op, "only administrators may move an analysis to %s", state)
		}

		updates["state"] = state

		now := time.Now()
		if state == models.AnalysisRunning && analysis.Started == nil {
			updates["started"] = now
		}

		if (state == models.AnalysisDone || state == models.AnalysisError) && analysis.Finished == nil {
			updates["finished"] = now
		}
	}

	if patch.AssigneeID != nil || patch.SchedulerID != nil || patch.ResultPath != nil {
		if !actor.IsAdmin {
			return nil, apperr.Forbidden(op, "only administrators may edit assignment and result fields")
		}

		if patch.AssigneeID != nil {
			updates["assignee_id"] = *patch.AssigneeID
		}

		if patch.SchedulerID != nil {
			updates["scheduler_id"] = *patch.SchedulerID
		}

		if patch.ResultPath != nil {
			updates["result_path"] = *patch.ResultPath
		}
	}

	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	err = s.inTx(op, func(tx *gorm.DB) error {
		return tx.Model(analysis).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return analysis, nil
}

// DeleteAnalysis withdraws an analysis that has not started. Only the
// requester or an administrator may delete, and only in the Requested state.
func (s *Service) DeleteAnalysis(viewer *models.User, id uint64) error {
	const op = "store.DeleteAnalysis"

	analysis, err := s.GetAnalysis(viewer, id)
	if err != nil {
		return err
	}

	if !viewer.IsAdmin && analysis.RequesterID != viewer.ID {
		return apperr.Forbidden(op, "only the requester or an administrator may delete analysis %d", id)
	}

	if analysis.State != models.AnalysisRequested {
		return apperr.Conflict(op, "analysis %d is %s; only Requested analyses can be deleted", id, analysis.State)
	}

	return s.inTx(op, func(tx *gorm.DB) error {
		if err := tx.Where("analysis_id = ?", id).Delete(&models.DatasetAnalysis{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Analysis{}, id).Error
	})
}

// AnalysisVariants returns the annotated variants of an analysis with their
// per-dataset genotypes. Visibility follows the analysis projection.
func (s *Service) AnalysisVariants(viewer *models.User, analysisID uint64) ([]models.Variant, error) {
	const op = "store.AnalysisVariants"

	if _, err := s.GetAnalysis(viewer, analysisID); err != nil {
		return nil, err
	}

	var variants []models.Variant
	if err := s.db.
		Preload("Gene").
		Preload("Genotypes").
		Where("analysis_id = ?", analysisID).
		Order("chromosome, position").
		Find(&variants).Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	return variants, nil
}
