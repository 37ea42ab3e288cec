// Package dataset serves the dataset endpoints, including the file links.
package dataset

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/auth"
	"github.com/genovault/genovault/internal/config"
	"github.com/genovault/genovault/internal/db/models"
	"github.com/genovault/genovault/internal/scope"
	"github.com/genovault/genovault/internal/store"
	"github.com/genovault/genovault/internal/web/handler"
)

// Path is the base path for datasets.
const Path = handler.RootPath + "/dataset"

// Service is the dataset handler.
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

	app.Post(Path+"/:id/file", authSvc.RequireAdmin(), s.LinkFile)
	app.Delete(Path+"/:id/file/:fileID", authSvc.RequireAdmin(), s.UnlinkFile)
}

// List returns the datasets visible to the caller. The group, participant,
// type and file-path filters compose with the projection without inflating
// the page count.
func (s *Service) List(c *fiber.Ctx) error {
	identity := auth.FromContext(c)

	tx := scope.Datasets(s.store.DB(), *identity.User)

	if group := c.Query("group"); group != "" {
		tx = scope.DatasetsInGroup(tx, group)
	}

	if path := c.Query("file"); path != "" {
		tx = scope.DatasetsWithFilePath(tx, path)
	}

	if dtype := c.Query("dataset_type"); dtype != "" {
		if !models.DatasetType(dtype).Valid() {
			return handler.Error(c, models.InvalidEnum("dataset.List", "dataset_type", dtype, models.DatasetTypeValues))
		}

		tx = tx.Where("datasets.dataset_type = ?", dtype)
	}

	if participant := c.Query("participant"); participant != "" {
		tx = tx.Where("participants.codename = ?", participant)
	}

	var datasets []models.Dataset

	params := handler.ListParams(c)

	total, err := scope.Page(tx, "datasets", params, &datasets)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(handler.Listing{Total: total, Page: params.Page, Data: datasets})
}

// Get returns one dataset with its ancestry, groups and files.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	dataset, err := s.store.GetDataset(auth.FromContext(c).User, id)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(dataset)
}

// Create adds a dataset to a tissue sample.
func (s *Service) Create(c *fiber.Ctx) error {
	var req store.DatasetRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	dataset, err := s.store.CreateDataset(identity.User, identity.Actor, req)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dataset)
}

// Update applies a partial update.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var patch store.DatasetPatch
	if err := store.DecodeStrict(c.Body(), &patch); err != nil {
		return handler.Error(c, err)
	}

	identity := auth.FromContext(c)

	dataset, err := s.store.UpdateDataset(identity.User, identity.Actor, id, patch)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.JSON(dataset)
}

// Delete removes a dataset and cascades through emptied ancestors.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	if err := s.store.DeleteDataset(auth.FromContext(c).User, id); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type linkFileRequest struct {
	Path        string `json:"path" validate:"required,max=500"`
	Multiplexed bool   `json:"multiplexed"`
}

// LinkFile attaches an object-store path to the dataset.
func (s *Service) LinkFile(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var req linkFileRequest
	if err := store.DecodeStrict(c.Body(), &req); err != nil {
		return handler.Error(c, err)
	}

	file, err := s.store.LinkFile(auth.FromContext(c).User, id, req.Path, req.Multiplexed)
	if err != nil {
		return handler.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(file)
}

// UnlinkFile detaches a file; an orphaned file row is deleted.
func (s *Service) UnlinkFile(c *fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return handler.Error(c, err)
	}

	fileID, err := strconv.ParseUint(c.Params("fileID"), 10, 64)
	if err != nil || fileID == 0 {
		return handler.Error(c, apperr.Invalid("dataset.UnlinkFile", "%q is not a valid file id", c.Params("fileID")))
	}

	if err := s.store.UnlinkFile(auth.FromContext(c).User, id, fileID); err != nil {
		return handler.Error(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
