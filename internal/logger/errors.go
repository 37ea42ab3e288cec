package logger

import "github.com/pkg/errors"

var (
	// ErrServiceNameIsEmpty service name must be set for the prometheus labels.
	ErrServiceNameIsEmpty = errors.New("service name is empty")

	// ErrAppNameIsEmpty app name must be set.
	ErrAppNameIsEmpty = errors.New("app name is empty")
)
