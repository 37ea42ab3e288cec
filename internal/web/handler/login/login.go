// Package login implements password login and logout for the JSON API.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/auth"
	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/web/handler"
	"github.com/genovault/genovault/internal/web/session"
)

const (
	// Path is the login endpoint.
	Path = handler.RootPath + "/login"
	// LogoutPath is the logout endpoint.
	LogoutPath = handler.RootPath + "/logout"

	// CookieName carries the session id.
	CookieName = "session"
)

// Service is the login handler.
type Service struct {
	cfg   *config.Config
	local *auth.LocalProvider
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the login and logout routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.local = auth.NewLocalProvider(db)

	app.Post(Path, s.Login)
	app.Post(LogoutPath, s.Logout)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userSummary struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

func summarize(u *models.User) userSummary {
	return userSummary{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin}
}

// Login authenticates a password and opens a session.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.cfg.LoginDisabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "password login is disabled"})
	}

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed request body"})
	}

	user, err := s.local.Authenticate(req.Username, req.Password)
	if err != nil {
		// wrong username and wrong password are indistinguishable
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidPassword) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid username or password"})
		}

		if errors.Is(err, auth.ErrUserDeactivated) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account is deactivated"})
		}

		log.Error().Err(err).Msg("login failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session id")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	data := &session.Data{UserID: user.ID}
	if err := data.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	cookie := &fiber.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	}
	c.Cookie(cookie)

	return c.JSON(summarize(user))
}

// Logout drops the session on both sides.
func (s *Service) Logout(c *fiber.Ctx) error {
	if sessionID := c.Cookies(CookieName); sessionID != "" {
		if err := session.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.ClearCookie(CookieName)

	return c.JSON(fiber.Map{"status": "logged out"})
}
