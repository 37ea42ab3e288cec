// Package oidc implements the browser login flow against the configured
// OpenID Connect provider. Bearer tokens for API calls are verified per
// request by the auth service and never touch the session.
package oidc

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/genovault/genovault/internal/auth"
	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/web/handler"
	"github.com/genovault/genovault/internal/web/session"
)

const (
	// Path starts the login flow.
	Path = handler.RootPath + "/oidc/login"
	// CallbackPath receives the provider redirect.
	CallbackPath = handler.RootPath + "/oidc/callback"

	stateCookie = "oidc_state"
)

// Service is the OIDC login handler.
type Service struct {
	cfg      *config.Config
	provider *auth.OIDCProvider
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the flow routes. A nil provider (OIDC disabled) registers
// nothing.
func (s *Service) Init(app *fiber.App, cfg *config.Config, provider *auth.OIDCProvider) {
	if app == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	if provider == nil {
		return
	}

	s.cfg = cfg
	s.provider = provider

	app.Get(Path, s.Login)
	app.Get(CallbackPath, s.Callback)
}

// Login redirects the browser to the provider's authorization endpoint.
func (s *Service) Login(c *fiber.Ctx) error {
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		MaxAge:   300,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(s.provider.GetAuthURL(state))
}

// Callback exchanges the authorization code and opens a session. Subjects
// without a pre-existing account are refused.
func (s *Service) Callback(c *fiber.Ctx) error {
	if c.Query("state") == "" || c.Query("state") != c.Cookies(stateCookie) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "state mismatch"})
	}

	c.ClearCookie(stateCookie)

	user, err := s.provider.HandleCallback(c.Context(), c.Query("code"))
	if err != nil {
		if errors.Is(err, auth.ErrUnknownSubject) || errors.Is(err, auth.ErrUserDeactivated) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		log.Error().Err(err).Msg("oidc callback failed")

		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "identity provider error"})
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

	c.Cookie(&fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect("/")
}
