package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/scope"
)

// ParticipantRequest is the payload for creating a participant.
type ParticipantRequest struct {
	FamilyID        uint64  `json:"family_id" validate:"required"`
	Codename        string  `json:"codename" validate:"required,max=50"`
	Sex             string  `json:"sex" validate:"omitempty"`
	ParticipantType string  `json:"participant_type" validate:"omitempty"`
	Affected        bool    `json:"affected"`
	Solved          bool    `json:"solved"`
	MonthOfBirth    *string `json:"month_of_birth" validate:"omitempty,len=7"`
	Institution     string  `json:"institution" validate:"max=100"`
	Notes           string  `json:"notes"`
}

// ParticipantPatch carries the updatable participant fields; nil means keep.
type ParticipantPatch struct {
	Sex             *string `json:"sex"`
	ParticipantType *string `json:"participant_type"`
	Affected        *bool   `json:"affected"`
	Solved          *bool   `json:"solved"`
	MonthOfBirth    *string `json:"month_of_birth"`
	Institution     *string `json:"institution"`
	Notes           *string `json:"notes"`
}

// CreateParticipant adds a participant to a family. The codename is unique
// within the family only.
func (s *Service) CreateParticipant(viewer, actor *models.User, req ParticipantRequest) (*models.Participant, error) {
	const op = "store.CreateParticipant"

	if err := models.ValidateParticipantCodename(op, req.Codename); err != nil {
		return nil, err
	}

	sex := models.Sex(req.Sex)
	if req.Sex != "" && !sex.Valid() {
		return nil, models.InvalidEnum(op, "sex", req.Sex, models.SexValues)
	}

	ptype := models.ParticipantType(req.ParticipantType)
	if req.ParticipantType != "" && !ptype.Valid() {
		return nil, models.InvalidEnum(op, "participant_type", req.ParticipantType, models.ParticipantTypeValues)
	}

	if _, err := s.GetFamily(viewer, req.FamilyID); err != nil {
		return nil, err
	}

	participant := &models.Participant{
		FamilyID:        req.FamilyID,
		Codename:        req.Codename,
		Sex:             sex,
		ParticipantType: ptype,
		Affected:        req.Affected,
		Solved:          req.Solved,
		MonthOfBirth:    req.MonthOfBirth,
		Institution:     req.Institution,
		Notes:           req.Notes,
	}
	participant.CreatedByID = actor.ID
	participant.UpdatedByID = actor.ID

	err := s.inTx(op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("family_id = ? AND codename = ?", req.FamilyID, req.Codename).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return apperr.Conflict(op, "participant %q already exists in family %d", req.Codename, req.FamilyID)
		}

		return tx.Create(participant).Error
	})
	if err != nil {
		return nil, err
	}

	return participant, nil
}

// GetParticipant returns one participant under the viewer's projection.
func (s *Service) GetParticipant(viewer *models.User, id uint64) (*models.Participant, error) {
	const op = "store.GetParticipant"

	var participant models.Participant

	err := scope.Participants(s.db, *viewer).
		Distinct("participants.*").
		Preload("Family").
		Preload("TissueSamples").
		Where("participants.id = ?", id).
		First(&participant).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "participant %d not found", id)
	}

	if err != nil {
		return nil, apperr.Transient(op, err)
	}

	return &participant, nil
}

// UpdateParticipant applies a partial update.
func (s *Service) UpdateParticipant(viewer, actor *models.User, id uint64, patch ParticipantPatch) (*models.Participant, error) {
	const op = "store.UpdateParticipant"

	participant, err := s.GetParticipant(viewer, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"updated_by": actor.ID}

	if patch.Sex != nil {
		sex := models.Sex(*patch.Sex)
		if !sex.Valid() {
			return nil, models.InvalidEnum(op, "sex", *patch.Sex, models.SexValues)
		}

		updates["sex"] = sex
	}

	if patch.ParticipantType != nil {
		ptype := models.ParticipantType(*patch.ParticipantType)
		if !ptype.Valid() {
			return nil, models.InvalidEnum(op, "participant_type", *patch.ParticipantType, models.ParticipantTypeValues)
		}

		updates["participant_type"] = ptype
	}

	if patch.Affected != nil {
		updates["affected"] = *patch.Affected
	}

	if patch.Solved != nil {
		updates["solved"] = *patch.Solved
	}

	if patch.MonthOfBirth != nil {
		updates["month_of_birth"] = *patch.MonthOfBirth
	}

	if patch.Institution != nil {
		updates["institution"] = *patch.Institution
	}

	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	err = s.inTx(op, func(tx *gorm.DB) error {
		return tx.Model(participant).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return participant, nil
}

// DeleteParticipant removes a participant. Refused while any tissue sample
// exists.
func (s *Service) DeleteParticipant(viewer *models.User, id uint64) error {
	const op = "store.DeleteParticipant"

	participant, err := s.GetParticipant(viewer, id)
	if err != nil {
		return err
	}

	return s.inTx(op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TissueSample{}).
			Where("participant_id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return apperr.Conflict(op, "participant %q still has %d tissue samples", participant.Codename, count)
		}

		return tx.Delete(participant).Error
	})
}
