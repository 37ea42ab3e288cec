package provision

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/objectstore"
)

// CreateGroup creates a permission group in the entity store together with
// its object-store footprint: the named policy, the group bucket, the
// results bucket, and the group itself with every member that holds
// credentials.
//
// The policy is installed before the buckets so that no bucket ever exists
// without its deny-delete policy on record. Bucket creation fails closed on
// a pre-existing bucket. On any object-store failure the entity-store row is
// rolled back and the policy is removed again, but buckets that were already
// created are kept: they may hold data and are reconciled by a later retry.
func (s *Service) CreateGroup(actor *models.User, code, name string, memberIDs []uint64) (*models.Group, error) {
	const op = "provision.CreateGroup"

	if err := models.ValidateGroupCode(op, code); err != nil {
		return nil, err
	}

	if name == "" {
		return nil, apperr.Invalid(op, "group name must not be empty")
	}

	var members []models.User
	if len(memberIDs) > 0 {
		if err := s.db.Find(&members, memberIDs).Error; err != nil {
			return nil, apperr.Transient(op, err)
		}

		if len(members) != len(memberIDs) {
			return nil, apperr.Invalid(op, "one or more member users do not exist")
		}
	}

	group := &models.Group{Code: code, Name: name, Users: members}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, apperr.Transient(op, tx.Error)
	}

	defer tx.Rollback()

	var count int64
	if err := tx.Model(&models.Group{}).
		Where("code = ? OR name = ?", code, name).
		Count(&count).Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	if count > 0 {
		return nil, apperr.Conflict(op, "group %q already exists", code)
	}

	if err := tx.Create(group).Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	if s.storeEnabled() {
		if err := s.createGroupFootprint(group); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	log.Info().Str("group", code).Int("members", len(members)).Msg("group created")

	return group, nil
}

// createGroupFootprint provisions the object-store side of a new group. The
// caller's transaction is still open; an error here aborts it.
func (s *Service) createGroupFootprint(group *models.Group) error {
	const op = "provision.CreateGroup"

	if err := s.store.AddCannedPolicy(group.Code, objectstore.NewGroupPolicy(group.Code)); err != nil {
		return apperr.ExternalState(op, "install policy", err)
	}

	for _, bucket := range []string{group.Code, group.ResultsBucket()} {
		if err := s.store.MakeBucket(bucket); err != nil {
			s.removePolicyBestEffort(group.Code)
			return apperr.ExternalState(op, "create bucket "+bucket, err)
		}
	}

	keys := memberAccessKeys(group.Users)
	if len(keys) > 0 {
		if err := s.store.GroupAdd(group.Code, keys...); err != nil {
			s.removePolicyBestEffort(group.Code)
			return apperr.ExternalState(op, "add members", err)
		}

		if err := s.store.SetGroupPolicy(group.Code, group.Code); err != nil {
			s.removePolicyBestEffort(group.Code)
			return apperr.ExternalState(op, "bind policy", err)
		}
	}

	return nil
}

func (s *Service) removePolicyBestEffort(code string) {
	if err := s.store.RemovePolicy(code); err != nil {
		log.Warn().Err(err).Str("group", code).Msg("failed to remove policy during rollback")
	}
}

// AddGroupMembers grants users membership of a group. Object-store grants
// happen before the entity-store commit; on an object-store failure the
// entity store is untouched and re-running the operation converges, since
// group_add is an upsert.
func (s *Service) AddGroupMembers(actor *models.User, code string, userIDs []uint64) error {
	const op = "provision.AddGroupMembers"

	group, err := s.groupByCode(op, code)
	if err != nil {
		return err
	}

	var users []models.User
	if err := s.db.Find(&users, userIDs).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if len(users) != len(userIDs) {
		return apperr.Invalid(op, "one or more users do not exist")
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return apperr.Transient(op, tx.Error)
	}

	defer tx.Rollback()

	for _, u := range users {
		link := models.UserGroup{UserID: u.ID, GroupID: group.ID}
		if err := tx.Where(&link).FirstOrCreate(&link).Error; err != nil {
			return apperr.Transient(op, err)
		}
	}

	if s.storeEnabled() {
		if keys := memberAccessKeys(users); len(keys) > 0 {
			if err := s.store.GroupAdd(code, keys...); err != nil {
				return apperr.ExternalState(op, "add members", err)
			}

			if err := s.store.SetGroupPolicy(code, code); err != nil {
				return apperr.ExternalState(op, "bind policy", err)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.Transient(op, err)
	}

	return nil
}

// RemoveGroupMembers revokes users' membership of a group. The entity-store
// rows go first; the object-store revocation follows the commit so that the
// projection never shows access the object store has already withdrawn.
func (s *Service) RemoveGroupMembers(actor *models.User, code string, userIDs []uint64) error {
	const op = "provision.RemoveGroupMembers"

	group, err := s.groupByCode(op, code)
	if err != nil {
		return err
	}

	var users []models.User
	if err := s.db.Find(&users, userIDs).Error; err != nil {
		return apperr.Transient(op, err)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return apperr.Transient(op, tx.Error)
	}

	defer tx.Rollback()

	if err := tx.Where("group_id = ? AND user_id IN ?", group.ID, userIDs).
		Delete(&models.UserGroup{}).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.Transient(op, err)
	}

	if s.storeEnabled() {
		if keys := memberAccessKeys(users); len(keys) > 0 {
			if err := s.store.GroupRemove(code, keys...); err != nil {
				return apperr.ExternalState(op, "remove members", err)
			}
		}
	}

	return nil
}

// RenameGroup changes a group's display name. The code, buckets and policy
// are immutable; only the entity store is touched.
func (s *Service) RenameGroup(actor *models.User, code, newName string) (*models.Group, error) {
	const op = "provision.RenameGroup"

	if newName == "" {
		return nil, apperr.Invalid(op, "group name must not be empty")
	}

	group, err := s.groupByCode(op, code)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Group{}).
		Where("name = ? AND id <> ?", newName, group.ID).
		Count(&count).Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	if count > 0 {
		return nil, apperr.Conflict(op, "group name %q already in use", newName)
	}

	group.Name = newName

	if err := s.db.Model(group).Update("name", newName).Error; err != nil {
		return nil, apperr.Transient(op, err)
	}

	return group, nil
}

// DeleteGroup removes an empty group. It refuses when the group still has
// members in either system. The entity-store row is deleted and committed
// first, then the object-store group and policy are removed; buckets are
// never deleted, they may hold data.
func (s *Service) DeleteGroup(code string) error {
	const op = "provision.DeleteGroup"

	group, err := s.groupByCode(op, code)
	if err != nil {
		return err
	}

	var memberCount int64
	if err := s.db.Model(&models.UserGroup{}).
		Where("group_id = ?", group.ID).
		Count(&memberCount).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if memberCount > 0 {
		return apperr.Conflict(op, "group %q still has %d members", code, memberCount)
	}

	if s.storeEnabled() {
		members, err := s.store.GroupMembers(code)
		if err != nil {
			return apperr.ExternalState(op, "list members", err)
		}

		if len(members) > 0 {
			return apperr.Conflict(op,
				"group %q still has %d members on the object store", code, len(members))
		}
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return apperr.Transient(op, tx.Error)
	}

	defer tx.Rollback()

	if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupDataset{}).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if err := tx.Delete(group).Error; err != nil {
		return apperr.Transient(op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.Transient(op, err)
	}

	if s.storeEnabled() {
		if err := s.store.GroupRemove(code); err != nil {
			return apperr.ExternalState(op, "remove group", err)
		}

		if err := s.store.RemovePolicy(code); err != nil {
			return apperr.ExternalState(op, "remove policy", err)
		}
	}

	log.Info().Str("group", code).Msg("group deleted, buckets preserved")

	return nil
}

func (s *Service) groupByCode(op, code string) (*models.Group, error) {
	var group models.Group

	if err := s.db.Where("code = ?", code).First(&group).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound(op, "group %q not found", code)
		}

		return nil, apperr.Transient(op, err)
	}

	return &group, nil
}

// memberAccessKeys collects the object-store access keys of the given users,
// skipping users that have never had credentials minted.
func memberAccessKeys(users []models.User) []string {
	var keys []string

	for _, u := range users {
		if u.MinioAccessKey != nil && *u.MinioAccessKey != "" {
			keys = append(keys, *u.MinioAccessKey)
		}
	}

	return keys
}
