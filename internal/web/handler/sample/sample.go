// Package sample serves the tissue-sample endpoints.
package sample

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

// Path is the base path for tissue samples.
const Path = handler.RootPath + "/sample"

// Service is the tissue-sample handler.
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

// List returns the samples visible to the caller.
func (s *Service) List(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	tx := scope.TissueSamples(s.store.DB(), *identity.User)

	if sampleType := c.Query("sample_type"); sampleType != "" {
		if !models.TissueSampleType(sampleType).Valid() {
			return handler.Error(c, models.InvalidEnum("sample.List", "sample_type", sampleType, models.TissueSampleTypeValues))
		}

		tx = tx.Where("tissue_samples.sample_type = ?", sampleType)
	}

	if participant := c.Query("participant"); participant != "" {
		tx = tx.Where("participants.codename = ?", participant)
	}

	var samples []models.TissueSample

	params := handler.ListParams(c)

	total, err := scope.Page(tx, "tissue_samples", params, &samples)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(handler.Listing{Total: total, Page: params.Page, Data: samples})
}

// Get returns one sample with its participant and datasets.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	sample, err := s.store.GetTissueSample(auth.FromContext(c).User, id)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(sample)
}

// Create adds a sample to a participant.
func (s *Service) Create(c *fiber.Ctx) error {
	var req store.TissueSampleRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	sample, err := s.store.CreateTissueSample(identity.User, identity.Actor, req)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(sample)
}

// Update applies a partial update.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var patch store.TissueSamplePatch
	if err := store.DecodeStrict(c.Body(), &patch); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	sample, err := s.store.UpdateTissueSample(identity.User, identity.Actor, id, patch)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(sample)
}

// Delete removes a sample with no datasets.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.store.DeleteTissueSample(auth.FromContext(c).User, id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
