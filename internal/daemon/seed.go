package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/db/models"
)

// seed creates the default administrator when the user table is empty, so a
// fresh deployment can log in and provision everything else.
func seed(cfg *config.Config, db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	admin := cfg.Admin
	if admin.Username == "" {
		admin.Username = "admin"
	}

	if admin.Password == "" {
		log.Warn().Msg("no admin password configured: seeding with a default, change it immediately")

		admin.Password = "changeme"
	}

	log.Info().Str("username", admin.Username).Msg("seeding default administrator")

	return db.Create(&models.User{
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: models.HashPassword(admin.Password),
		IsAdmin:      true,
	}).Error
}
