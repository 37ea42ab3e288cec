// Package provision coordinates group and user mutations that span the
// entity store and the object store. It owns the ordering of the two-system
// writes, the compensations on partial failure, and the idempotency rules:
// grants happen before the entity-store commit that makes them visible,
// revocations after it, and every operation is safe to re-run to converge
// from a reported inconsistency.
package provision

import (
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/objectstore"
)

// ObjectStore is the administrative surface the coordinator consumes,
// implemented by objectstore.Client.
type ObjectStore interface {
	MakeBucket(name string) error
	BucketExists(name string) (bool, error)

	AddCannedPolicy(name string, policy objectstore.Policy) error
	RemovePolicy(name string) error
	SetGroupPolicy(policy, group string) error

	AddUser(accessKey, secretKey string) error
	RemoveUser(accessKey string) error
	HasUser(accessKey string) (bool, error)

	GroupAdd(group string, members ...string) error
	GroupRemove(group string, members ...string) error
	GroupMembers(group string) ([]string, error)
}

// Service keeps the entity store and the object store consistent. A nil
// store disables object-store reconciliation (development mode).
type Service struct {
	db    *gorm.DB
	store ObjectStore
}

// NewService creates a new provisioning service.
func NewService(db *gorm.DB, store ObjectStore) *Service {
	return &Service{db: db, store: store}
}

func (s *Service) storeEnabled() bool {
	return s.store != nil
}
