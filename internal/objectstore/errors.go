package objectstore

import (
	"github.com/pkg/errors"
)

var (
	// ErrClientNotInitialized is returned when the object store client is not initialized.
	ErrClientNotInitialized = errors.New("object store client not initialized")

	// ErrBucketExists is returned when a bucket creation fails closed because
	// the bucket is already present.
	ErrBucketExists = errors.New("bucket already exists")
)
