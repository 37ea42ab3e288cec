package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/db/models"
)

// LocalProvider handles local database authentication.
type LocalProvider struct {
	db *gorm.DB
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// Authenticate authenticates a user against the local database and stamps
// the login time on success.
func (p *LocalProvider) Authenticate(username, password string) (*models.User, error) {
	var user models.User

	err := p.db.Where("username = ?", username).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if user.Deactivated {
		return nil, ErrUserDeactivated
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	now := time.Now()
	user.LastLogin = &now

	if err := p.db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("failed to stamp login time: %w", err)
	}

	return &user, nil
}
