// Package analysis serves the analysis endpoints. Requesting and cancelling
// are open to every authenticated user; assignment and state moves other
// than cancellation belong to administrators.
package analysis

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

// Path is the base path for analyses.
const Path = handler.RootPath + "/analysis"

// Service is the analysis handler.
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
	app.Get(Path+"/:id/variants", authSvc.RequireUser(), s.Variants)
	app.Post(Path, authSvc.RequireUser(), s.Create)
	app.Patch(Path+"/:id", authSvc.RequireUser(), s.Update)
	app.Delete(Path+"/:id", authSvc.RequireUser(), s.Delete)
}

// List returns the analyses visible to the caller.
func (s *Service) List(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	tx := scope.Analyses(s.store.DB(), *identity.User)

	if state := c.Query("state"); state != "" {
		if !models.AnalysisState(state).Valid() {
			return handler.Error(c, models.InvalidEnum("analysis.List", "state", state, models.AnalysisStateValues))
		}

		tx = tx.Where("analyses.state = ?", state)
	}

	if requester := c.Query("requester"); requester == "me" {
		tx = tx.Where("analyses.requester_id = ?", identity.User.ID)
	}

	var analyses []models.Analysis

	params := handler.ListParams(c)

	total, err := scope.Page(tx, "analyses", params, &analyses)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(handler.Listing{Total: total, Page: params.Page, Data: analyses})
}

// Get returns one analysis with its datasets and pipeline.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	analysis, err := s.store.GetAnalysis(auth.FromContext(c).User, id)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(analysis)
}

// Variants returns the annotated variants of an analysis.
func (s *Service) Variants(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	variants, err := s.store.AnalysisVariants(auth.FromContext(c).User, id)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(variants)
}

// Create requests a pipeline run over a set of datasets.
func (s *Service) Create(c *fiber.Ctx) error {
	var req store.AnalysisRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	analysis, err := s.store.CreateAnalysis(identity.User, identity.Actor, req)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(analysis)
}

// Update applies a partial update under the state machine rules.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var patch store.AnalysisPatch
	if err := store.DecodeStrict(c.Body(), &patch); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	analysis, err := s.store.UpdateAnalysis(identity.User, identity.Actor, id, patch)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(analysis)
}

// Delete withdraws a Requested analysis.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.store.DeleteAnalysis(auth.FromContext(c).User, id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
