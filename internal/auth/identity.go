// Package auth resolves the caller of each request to a user record and
// enforces role requirements at the route level. Identity comes from a
// session cookie (browser) or an OIDC bearer token (API clients); an
// administrator may additionally act on behalf of another user for the
// duration of one request.
package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/web/session"
)

// localsIdentityKey caches the resolved identity for the request lifetime.
const localsIdentityKey = "identity"

// impersonationParam names the query parameter an administrator uses to act
// on behalf of another user.
const impersonationParam = "user"

// Identity is the resolved caller of a request. Actor is who authenticated
// and is recorded in audit stamps; User is whose data projection applies.
// The two differ only under admin impersonation.
type Identity struct {
	Actor *models.User
	User  *models.User
}

// Impersonating reports whether the actor is acting on behalf of another user.
func (i *Identity) Impersonating() bool {
	return i.Actor.ID != i.User.ID
}

// Service resolves request identities.
type Service struct {
	db   *gorm.DB
	oidc *OIDCProvider
}

// NewService creates a new auth service. A nil OIDC provider disables
// bearer-token identity.
func NewService(db *gorm.DB, oidc *OIDCProvider) *Service {
	return &Service{db: db, oidc: oidc}
}

// Resolve determines the identity of the request's caller. The session
// cookie is consulted first, then the Authorization header. The result is
// valid for this request only.
func (s *Service) Resolve(c *fiber.Ctx) (*Identity, error) {
	actor, err := s.resolveActor(c)
	if err != nil {
		return nil, err
	}

	identity := &Identity{Actor: actor, User: actor}

	target := c.Query(impersonationParam)
	if target == "" || target == actor.Username {
		return identity, nil
	}

	if !actor.IsAdmin {
		return nil, ErrNotAuthenticated
	}

	var user models.User
	if err := s.db.Where("username = ?", target).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	identity.User = &user

	return identity, nil
}

func (s *Service) resolveActor(c *fiber.Ctx) (*models.User, error) {
	if sessionID := c.Cookies("session"); sessionID != "" {
		return s.actorFromSession(sessionID)
	}

	header := c.Get(fiber.HeaderAuthorization)
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		if s.oidc == nil {
			return nil, ErrOIDCDisabled
		}

		return s.oidc.VerifyBearer(c.Context(), token)
	}

	return nil, ErrNotAuthenticated
}

// actorFromSession loads the session's user fresh from the database, so a
// deactivation takes effect before the session expires.
func (s *Service) actorFromSession(sessionID string) (*models.User, error) {
	data := new(session.Data)
	if err := data.Read(sessionID); err != nil || data.UserID == 0 {
		return nil, ErrNotAuthenticated
	}

	var user models.User
	if err := s.db.First(&user, data.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}

		return nil, err
	}

	if user.Deactivated {
		return nil, ErrUserDeactivated
	}

	return &user, nil
}

// RequireUser is Fiber middleware that rejects unauthenticated requests and
// caches the resolved identity in the request locals.
func (s *Service) RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if FromContext(c) != nil {
			return c.Next()
		}

		identity, err := s.Resolve(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		c.Locals(localsIdentityKey, identity)

		return c.Next()
	}
}

// RequireAdmin is Fiber middleware that additionally requires the
// authenticated actor to be an administrator.
func (s *Service) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := FromContext(c)

		if identity == nil {
			resolved, err := s.Resolve(c)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "unauthorized",
				})
			}

			c.Locals(localsIdentityKey, resolved)
			identity = resolved
		}

		if !identity.Actor.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin privileges required",
			})
		}

		return c.Next()
	}
}

// FromContext returns the identity cached by RequireUser or RequireAdmin,
// or nil when the request is unauthenticated.
func FromContext(c *fiber.Ctx) *Identity {
	identity, _ := c.Locals(localsIdentityKey).(*Identity)
	return identity
}
