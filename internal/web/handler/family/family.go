// Package family serves the family endpoints. Reads are open to every
// authenticated user through their projection; structural changes are
// administrator operations.
package family

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/genovault/genovault/internal/auth"
	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/scope"
	"github.com/genovault/genovault/internal/store"
	"github.com/genovault/genovault/internal/web/handler"
)

// Path is the base path for families.
const Path = handler.RootPath + "/family"

// Service is the family handler.
type Service struct {
	cfg   *config.Config
	store *store.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authSvc *auth.Service, storeSvc *store.Service) {
	if app == nil || cfg == nil || authSvc == nil || storeSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.store = storeSvc

	app.Get(Path, authSvc.RequireUser(), s.List)
	app.Get(Path+"/:id", authSvc.RequireUser(), s.Get)
	app.Post(Path, authSvc.RequireAdmin(), s.Create)
	app.Patch(Path+"/:id", authSvc.RequireAdmin(), s.Update)
	app.Delete(Path+"/:id", authSvc.RequireAdmin(), s.Delete)
}

// List returns the families visible to the caller.
func (s *Service) List(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	tx := scope.Families(s.store.DB(), *identity.User)
	if codename := c.Query("codename"); codename != "" {
		tx = tx.Where("families.codename LIKE ?", "%"+codename+"%")
	}

	var families []models.Family

	params := handler.ListParams(c)

	total, err := scope.Page(tx, "families", params, &families)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(handler.Listing{Total: total, Page: params.Page, Data: families})
}

// Get returns one family with its participants.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	family, err := s.store.GetFamily(auth.FromContext(c).User, id)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(family)
}

// Create adds a family.
func (s *Service) Create(c *fiber.Ctx) error {
	var req store.FamilyRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	family, err := s.store.CreateFamily(auth.FromContext(c).Actor, req)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(family)
}

// Update renames a family.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var req store.FamilyRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	family, err := s.store.UpdateFamily(identity.User, identity.Actor, id, req)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(family)
}

// Delete removes an empty family.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.store.DeleteFamily(auth.FromContext(c).User, id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
