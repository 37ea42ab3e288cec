package auth

import "errors"

var (
	// ErrNotAuthenticated is returned when a request carries neither a valid
	// session cookie nor a valid bearer token.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserDeactivated is returned when attempting to authenticate a deactivated account.
	ErrUserDeactivated = errors.New("user account is deactivated")

	// ErrUnknownSubject is returned when a verified token's subject matches no
	// user record. Tokens are matched on the subject claim only, never on
	// username or email.
	ErrUnknownSubject = errors.New("token subject matches no user")

	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrOIDCDisabled is returned when OIDC is disabled via configuration.
	ErrOIDCDisabled = errors.New("oidc authentication is disabled")
)
