// Package group provides the administrator endpoints for permission groups.
// Every mutation funnels through the provisioning service so the object-store
// footprint stays in step with the database.
package group

import (
	"errors"

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

// Path is the base path for group administration.
const Path = handler.RootPath + "/admin/group"

// Service is the group admin handler.
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
	app.Get(Path+"/:code", admin, s.Get)
	app.Post(Path, admin, s.Create)
	app.Patch(Path+"/:code", admin, s.Update)
	app.Delete(Path+"/:code", admin, s.Delete)

	app.Post(Path+"/:code/member", admin, s.AddMembers)
	app.Delete(Path+"/:code/member", admin, s.RemoveMembers)
}

type memberView struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type groupView struct {
	ID      uint64       `json:"id"`
	Code    string       `json:"code"`
	Name    string       `json:"name"`
	Members []memberView `json:"members"`
}

func view(g *models.Group) groupView {
	members := make([]memberView, 0, len(g.Users))
	for _, u := range g.Users {
		members = append(members, memberView{ID: u.ID, Username: u.Username, Email: u.Email})
	}

	return groupView{ID: g.ID, Code: g.Code, Name: g.Name, Members: members}
}

// List returns all groups with their members.
func (s *Service) List(c *fiber.Ctx) error {
	var groups []models.Group
	if err := s.db.Preload("Users").Order("code").Find(&groups).Error; err != nil {
		log.Error().Err(err).Msg("failed to list groups")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	out := make([]groupView, 0, len(groups))
	for i := range groups {
		out = append(out, view(&groups[i]))
	}

	return c.JSON(out)
}

// Get returns one group by code.
func (s *Service) Get(c *fiber.Ctx) error {
	var group models.Group

	err := s.db.Preload("Users").Where("code = ?", c.Params("code")).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "group not found"})
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to load group")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(view(&group))
}

type createRequest struct {
	Code      string   `json:"code" validate:"required,max=50"`
	Name      string   `json:"name" validate:"required,max=250"`
	MemberIDs []uint64 `json:"member_ids"`
}

// Create provisions a group in the database and on the object store.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	group, err := s.provision.CreateGroup(auth.FromContext(c).Actor, req.Code, req.Name, req.MemberIDs)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(view(group))
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=250"`
}

// Update renames a group. The code, buckets and policy are immutable.
func (s *Service) Update(c *fiber.Ctx) error {
	var req renameRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	group, err := s.provision.RenameGroup(auth.FromContext(c).Actor, c.Params("code"), req.Name)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(view(group))
}

// Delete removes an empty group. The buckets survive.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.provision.DeleteGroup(c.Params("code")); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type membersRequest struct {
	UserIDs []uint64 `json:"user_ids" validate:"required,min=1"`
}

// AddMembers adds users to a group on both sides.
func (s *Service) AddMembers(c *fiber.Ctx) error {
	var req membersRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	if err := s.provision.AddGroupMembers(auth.FromContext(c).Actor, c.Params("code"), req.UserIDs); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveMembers removes users from a group on both sides.
func (s *Service) RemoveMembers(c *fiber.Ctx) error {
	var req membersRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	if err := s.provision.RemoveGroupMembers(auth.FromContext(c).Actor, c.Params("code"), req.UserIDs); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
