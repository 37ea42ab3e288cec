// Package handler holds the pieces shared by all API handlers: route
// constants, identifier parsing, listing parameters and the error-to-status
// mapping.
package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/genovault/genovault/internal/apperr"
	"github.com/genovault/genovault/internal/scope"
)

const (
	// RootPath is the base path of the JSON API.
	RootPath = "/api"

	// ErrNilDepsFatalLogMsg is logged when a handler is initialised without
	// its dependencies.
	ErrNilDepsFatalLogMsg = "handler initialised with nil dependencies"
)

// ErrorWebhookURL, when set, receives a JSON notification for every
// server-side error. Posting is asynchronous and best effort.
var ErrorWebhookURL string

// Error answers a failed request. Classified errors map to their status and
// expose their message; everything else is a 500 with a generic body so
// internals never leak.
func Error(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)

	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")

		if ErrorWebhookURL != "" {
			go notifyWebhook(c.Path(), err)
		}

		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func notifyWebhook(path string, err error) {
	body, merr := json.Marshal(fiber.Map{"path": path, "error": err.Error()})
	if merr != nil {
		return
	}

	resp, perr := http.Post(ErrorWebhookURL, "application/json", bytes.NewReader(body))
	if perr != nil {
		log.Warn().Err(perr).Msg("error webhook unreachable")

		return
	}

	resp.Body.Close()
}

// ParseID reads the :id route parameter.
func ParseID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("handler.ParseID", "%q is not a valid id", c.Params("id"))
	}

	return id, nil
}

// ListParams reads the shared paging and ordering query parameters.
func ListParams(c *fiber.Ctx) scope.ListParams {
	return scope.ListParams{
		Page:    c.QueryInt("page", 0),
		Limit:   c.QueryInt("limit", scope.DefaultLimit),
		OrderBy: c.Query("order_by"),
		Order:   c.Query("order"),
	}
}

// Listing is the envelope of every paged listing response.
type Listing struct {
	Total int64       `json:"total_count"`
	Page  int         `json:"page"`
	Data  interface{} `json:"data"`
}
