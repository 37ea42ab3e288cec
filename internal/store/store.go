// Package store is the façade over the entity graph: families down to
// datasets, analyses, files and variant annotations. Every read goes through
// the caller's projection, every mutation runs in a unit of work and stamps
// the acting identity. Deletions honor the tree invariant: a parent is never
// removed while a child remains, and removing the last child cascades upward.
package store

import (
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/apperr"
)

// Service owns all entity-store access above the projection layer.
type Service struct {
	db *gorm.DB
}

// NewService creates a new entity store service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// DB exposes the underlying handle for listing queries that are composed
// through the projection package.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// inTx runs fn inside a transaction. Errors already classified keep their
// kind; everything else becomes a transient fault of op.
func (s *Service) inTx(op string, fn func(tx *gorm.DB) error) error {
	err := s.db.Transaction(fn)
	if err == nil {
		return nil
	}

	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}

	return apperr.Transient(op, err)
}
