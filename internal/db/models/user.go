package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents an account in the system.
// Users authenticate with a local password or an OIDC bearer token, belong to
// permission groups, and may hold issued object-store credentials. The access
// key, when present, is the primary identifier of the user on the object
// store side.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Username is the unique username for login.
	Username string `gorm:"unique;size:50;not null"`
	// Email is the user's email address.
	Email string `gorm:"size:150;not null"`
	// PasswordHash is the Argon2id hashed password (local authentication only).
	PasswordHash string `gorm:"size:255"`
	// IsAdmin grants unrestricted visibility and the impersonation right.
	IsAdmin bool
	// Deactivated blocks login; deactivation also revokes object-store access.
	Deactivated bool
	// Issuer and Subject identify the user at the OIDC provider. Matching is
	// by subject only, never by username or email.
	Issuer  *string `gorm:"size:150"`
	Subject *string `gorm:"size:150;index"`
	// MinioAccessKey / MinioSecretKey are the issued object-store credentials,
	// absent until the first rotation.
	MinioAccessKey *string `gorm:"size:150"`
	MinioSecretKey *string `gorm:"size:150"`
	// LastLogin is stamped on every successful authentication.
	LastLogin *time.Time

	Groups []Group `gorm:"many2many:users_groups"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the stored hash.
// It uses constant-time comparison to prevent timing attacks.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
