// Package participant serves the participant endpoints.
package participant

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

// Path is the base path for participants.
const Path = handler.RootPath + "/participant"

// Service is the participant handler.
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

// List returns the participants visible to the caller. Filters compose with
// the projection.
func (s *Service) List(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	tx := scope.Participants(s.store.DB(), *identity.User)

	if codename := c.Query("codename"); codename != "" {
		tx = tx.Where("participants.codename LIKE ?", "%"+codename+"%")
	}

	if family := c.Query("family"); family != "" {
		tx = tx.Where("families.codename = ?", family)
	}

	if affected := c.Query("affected"); affected != "" {
		tx = tx.Where("participants.affected = ?", affected == "true")
	}

	var participants []models.Participant

	params := handler.ListParams(c)

	total, err := scope.Page(tx, "participants", params, &participants)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(handler.Listing{Total: total, Page: params.Page, Data: participants})
}

// Get returns one participant with its family and samples.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	participant, err := s.store.GetParticipant(auth.FromContext(c).User, id)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(participant)
}

// Create adds a participant to a family.
func (s *Service) Create(c *fiber.Ctx) error {
	var req store.ParticipantRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	participant, err := s.store.CreateParticipant(identity.User, identity.Actor, req)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(participant)
}

// Update applies a partial update.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var patch store.ParticipantPatch
	if err := store.DecodeStrict(c.Body(), &patch); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	participant, err := s.store.UpdateParticipant(identity.User, identity.Actor, id, patch)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(participant)
}

// Delete removes a participant with no samples.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.store.DeleteParticipant(auth.FromContext(c).User, id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
