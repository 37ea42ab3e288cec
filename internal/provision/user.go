package provision

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/keygen"
)

// RotateCredentials mints a fresh object-store credential pair for a user
// and re-grants every group membership under the new access key. Any
// previous credential is revoked first, so at most one pair is ever live.
// The new keys reach the entity store only after the object-store grants
// succeeded; a failure part-way leaves the old entity-store keys in place
// and a re-run converges.
func (s *Service) RotateCredentials(actor *models.User, userID uint64) (string, string, error) {
	const op = "provision.RotateCredentials"

	var user models.User

	if err := s.db.Preload("Groups").First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", "", apperr.NotFound(op, "user %d not found", userID)
		}

		return "", "", apperr.Transient(op, err)
	}

	if user.Deactivated {
		return "", "", apperr.Forbidden(op, "cannot mint credentials for a deactivated user")
	}

	if !s.storeEnabled() {
		return "", "", apperr.Invalid(op, "object store is not enabled")
	}

	if user.MinioAccessKey != nil && *user.MinioAccessKey != "" {
		present, err := s.store.HasUser(*user.MinioAccessKey)
		if err != nil {
			return "", "", apperr.ExternalState(op, "check old credential", err)
		}

		if present {
			if err := s.store.RemoveUser(*user.MinioAccessKey); err != nil {
				return "", "", apperr.ExternalState(op, "revoke old credential", err)
			}
		}
	}

	accessKey := keygen.AccessKey()
	secretKey := keygen.SecretKey()

	if err := s.store.AddUser(accessKey, secretKey); err != nil {
		return "", "", apperr.ExternalState(op, "create credential", err)
	}

	for _, g := range user.Groups {
		if err := s.store.GroupAdd(g.Code, accessKey); err != nil {
			return "", "", apperr.ExternalState(op, "add to group "+g.Code, err)
		}

		if err := s.store.SetGroupPolicy(g.Code, g.Code); err != nil {
			return "", "", apperr.ExternalState(op, "bind policy for group "+g.Code, err)
		}
	}

	updates := map[string]any{
		"minio_access_key": accessKey,
		"minio_secret_key": secretKey,
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return "", "", apperr.Transient(op, err)
	}

	log.Info().Str("username", user.Username).Msg("object store credentials rotated")

	return accessKey, secretKey, nil
}

// DeactivateUser flags a user as deactivated, revokes their object-store
// credential and clears the stored keys. The entity-store change and the
// revocation succeed or fail together.
func (s *Service) DeactivateUser(actor *models.User, userID uint64) error {
	const op = "provision.DeactivateUser"

	var user models.User

	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound(op, "user %d not found", userID)
		}

		return apperr.Transient(op, err)
	}

	// Updates also clears the key on the loaded struct, keep it for the
	// revocation below.
	oldKey := user.MinioAccessKey

	tx := s.db.Begin()
	if tx.Error != nil {
		return apperr.Transient(op, tx.Error)
	}

	defer tx.Rollback()

	updates := map[string]any{
		"deactivated":      true,
		"minio_access_key": nil,
		"minio_secret_key": nil,
	}

	if err := tx.Model(&user).Updates(updates).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if s.storeEnabled() && oldKey != nil && *oldKey != "" {
		if err := s.store.RemoveUser(*oldKey); err != nil {
			return apperr.ExternalState(op, "revoke credential", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.Transient(op, err)
	}

	log.Info().Str("username", user.Username).Msg("user deactivated")

	return nil
}

// DeleteUser removes a user entirely. A user still referenced by audit
// stamps or analyses cannot be deleted; the operation degrades to a
// deactivation and reports the degradation as a distinct conflict.
func (s *Service) DeleteUser(actor *models.User, userID uint64) error {
	const op = "provision.DeleteUser"

	var user models.User

	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound(op, "user %d not found", userID)
		}

		return apperr.Transient(op, err)
	}

	referenced, err := s.userReferenced(userID)
	if err != nil {
		return apperr.Transient(op, err)
	}

	if referenced {
		if err := s.DeactivateUser(actor, userID); err != nil {
			return err
		}

		return apperr.Conflict(op,
			"user %q is referenced by existing records; deactivated instead", user.Username)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return apperr.Transient(op, tx.Error)
	}

	defer tx.Rollback()

	if err := tx.Where("user_id = ?", userID).Delete(&models.UserGroup{}).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if err := tx.Delete(&user).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.Transient(op, err)
	}

	// revocation follows the commit, like every other removal
	if s.storeEnabled() && user.MinioAccessKey != nil && *user.MinioAccessKey != "" {
		if err := s.store.RemoveUser(*user.MinioAccessKey); err != nil {
			return apperr.ExternalState(op, "revoke credential", err)
		}
	}

	log.Info().Str("username", user.Username).Msg("user deleted")

	return nil
}

// userReferenced reports whether any record carries the user in an audit
// stamp or analysis role.
func (s *Service) userReferenced(userID uint64) (bool, error) {
	stamped := []any{
		&models.Family{},
		&models.Participant{},
		&models.TissueSample{},
		&models.Dataset{},
	}

	for _, model := range stamped {
		var count int64
		if err := s.db.Model(model).
			Where("created_by = ? OR updated_by = ?", userID, userID).
			Count(&count).Error; err != nil {
			return false, err
		}

		if count > 0 {
			return true, nil
		}
	}

	var count int64
	if err := s.db.Model(&models.Analysis{}).
		Where("requester_id = ? OR assignee_id = ? OR updated_by = ?", userID, userID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}
