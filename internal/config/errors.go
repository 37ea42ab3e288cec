package config

import "github.com/pkg/errors"

var (
	// ErrWebServerPortCanNotBeZero webserver port must be set.
	ErrWebServerPortCanNotBeZero = errors.New("webserver port can not be 0")

	// ErrEmptyURL webserver url must be set.
	ErrEmptyURL = errors.New("webserver url can not be empty")

	// ErrObjectStoreEndpointEmpty object store endpoint must be set when enabled.
	ErrObjectStoreEndpointEmpty = errors.New("object store endpoint can not be empty")

	// ErrObjectStoreRootKeysEmpty root credentials must be set when enabled.
	ErrObjectStoreRootKeysEmpty = errors.New("object store root credentials can not be empty")

	// ErrOIDCProviderURLEmpty provider url must be set when OIDC is enabled.
	ErrOIDCProviderURLEmpty = errors.New("oidc provider url can not be empty")
)
