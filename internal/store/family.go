package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/scope"
)

// FamilyRequest is the payload for creating or renaming a family.
type FamilyRequest struct {
	Codename string `json:"codename" validate:"required,max=50"`
}

// CreateFamily creates a family root.
func (s *Service) CreateFamily(actor *models.User, req FamilyRequest) (*models.Family, error) {
	const op = "store.CreateFamily"

	if err := models.ValidateFamilyCodename(op, req.Codename); err != nil {
		return nil, err
	}

	family := &models.Family{Codename: req.Codename}
	family.CreatedByID = actor.ID
	family.UpdatedByID = actor.ID

	err := s.inTx(op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Family{}).
			Where("codename = ?", req.Codename).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return apperr.Conflict(op, "family %q already exists", req.Codename)
		}

		return tx.Create(family).Error
	})
	if err != nil {
		return nil, err
	}

	return family, nil
}

// GetFamily returns one family under the viewer's projection, with its
// participants loaded.
func (s *Service) GetFamily(viewer *models.User, id uint64) (*models.Family, error) {
	const op = "store.GetFamily"

	var family models.Family

	err := scope.Families(s.db, *viewer).
		Distinct("families.*").
		Preload("Participants").
		Where("families.id = ?", id).
		First(&family).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "family %d not found", id)
	}

	if err != nil {
		return nil, apperr.Transient(op, err)
	}

	return &family, nil
}

// UpdateFamily renames a family.
func (s *Service) UpdateFamily(viewer, actor *models.User, id uint64, req FamilyRequest) (*models.Family, error) {
	const op = "store.UpdateFamily"

	if err := models.ValidateFamilyCodename(op, req.Codename); err != nil {
		return nil, err
	}

	family, err := s.GetFamily(viewer, id)
	if err != nil {
		return nil, err
	}

	err = s.inTx(op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Family{}).
			Where("codename = ? AND id <> ?", req.Codename, id).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return apperr.Conflict(op, "family %q already exists", req.Codename)
		}

		return tx.Model(family).
			Updates(map[string]interface{}{"codename": req.Codename, "updated_by": actor.ID}).Error
	})
	if err != nil {
		return nil, err
	}

	return family, nil
}

// DeleteFamily removes a family. Refused while any participant exists.
func (s *Service) DeleteFamily(viewer *models.User, id uint64) error {
	const op = "store.DeleteFamily"

	family, err := s.GetFamily(viewer, id)
	if err != nil {
		return err
	}

	return s.inTx(op, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Participant{}).
			Where("family_id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return apperr.Conflict(op, "family %q still has %d participants", family.Codename, count)
		}

		return tx.Delete(family).Error
	})
}
