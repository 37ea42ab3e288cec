// Package user provides the administrator endpoints for accounts: CRUD,
// credential rotation and deactivation. Secret keys are returned exactly
// once, from the rotation call.
package user

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/genovault/genovault/internal/auth"
	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/provision"
	"github.com/genovault/genovault/internal/store"
	"github.com/genovault/genovault/internal/web/handler"
)

// Path is the base path for user administration.
const Path = handler.RootPath + "/admin/user"

// Service is the user admin handler.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	provision *provision.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. All of them require the administrator role.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authSvc *auth.Service, provisionSvc *provision.Service) {
	if app == nil || cfg == nil || db == nil || authSvc == nil || provisionSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.provision = provisionSvc

	admin := authSvc.RequireAdmin()

	app.Get(Path, admin, s.List)
	app.Get(Path+"/:id", admin, s.Get)
	app.Post(Path, admin, s.Create)
	app.Patch(Path+"/:id", admin, s.Update)
	app.Delete(Path+"/:id", admin, s.Delete)

	app.Post(Path+"/:id/rotate", admin, s.Rotate)
	app.Post(Path+"/:id/deactivate", admin, s.Deactivate)
}

// userView hides the password hash and the secret key.
type userView struct {
	ID          uint64     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsAdmin     bool       `json:"is_admin"`
	Deactivated bool       `json:"deactivated"`
	AccessKey   *string    `json:"minio_access_key"`
	LastLogin   *time.Time `json:"last_login"`
	Groups      []string   `json:"groups"`
}

func view(u *models.User) userView {
	groups := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		groups = append(groups, g.Code)
	}

	return userView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsAdmin:     u.IsAdmin,
		Deactivated: u.Deactivated,
		AccessKey:   u.MinioAccessKey,
		LastLogin:   u.LastLogin,
		Groups:      groups,
	}
}

// List returns all accounts.
func (s *Service) List(c *fiber.Ctx) error {
	tx := s.db.Preload("Groups").Order("username")

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		tx = tx.Where("username LIKE ? OR email LIKE ?", like, like)
	}

	var users []models.User
	if err := tx.Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("failed to list users")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	out := make([]userView, 0, len(users))
	for i := range users {
		out = append(out, view(&users[i]))
	}

	return c.JSON(out)
}

// Get returns one account.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var user models.User

	err = s.db.Preload("Groups").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to load user")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(view(&user))
}

type createRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=150"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

// Create adds a local account.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: models.HashPassword(req.Password),
		IsAdmin:      req.IsAdmin,
	}

	var conflict int64
	if err := s.db.Model(&models.User{}).
		Where("username = ?", req.Username).
		Count(&conflict).Error; err == nil && conflict > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "username already exists"})
	}

	if err := s.db.Create(&user).Error; err != nil {
		log.Error().Err(err).Msg("failed to create user")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(view(&user))
}

type updateRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=150"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	IsAdmin  *bool   `json:"is_admin"`
}

// Update changes email, password or the administrator flag.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var req updateRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	var user models.User

	err = s.db.Preload("Groups").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to load user")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	updates := map[string]interface{}{}

	if req.Email != nil {
		updates["email"] = *req.Email
	}

	if req.Password != nil {
		updates["password_hash"] = models.HashPassword(*req.Password)
	}

	if req.IsAdmin != nil {
		// an admin cannot demote their own account
		if auth.FromContext(c).Actor.ID == user.ID && !*req.IsAdmin {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "cannot remove your own administrator role"})
		}

		updates["is_admin"] = *req.IsAdmin
	}

	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			log.Error().Err(err).Msg("failed to update user")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}
	}

	return c.JSON(view(&user))
}

// rotateResponse carries the secret key; it is never readable again.
type rotateResponse struct {
	AccessKey string `json:"minio_access_key"`
	SecretKey string `json:"minio_secret_key"`
}

// Rotate issues fresh object-store credentials, destroying the previous key.
func (s *Service) Rotate(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	accessKey, secretKey, err := s.provision.RotateCredentials(auth.FromContext(c).Actor, id)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(rotateResponse{AccessKey: accessKey, SecretKey: secretKey})
}

// Deactivate blocks login and revokes object-store access.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if auth.FromContext(c).Actor.ID == id {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "cannot deactivate your own account"})
	}

	if err := s.provision.DeactivateUser(auth.FromContext(c).Actor, id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes an account; accounts referenced by stamped records are
// deactivated instead, reported as a conflict.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if auth.FromContext(c).Actor.ID == id {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "cannot delete your own account"})
	}

	if err := s.provision.DeleteUser(auth.FromContext(c).Actor, id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
