package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mixelka/mailsync/internal/api/response"
	"github.com/mixelka/mailsync/pkg/models"
)

// EmailHandler handles stored email HTTP requests
type EmailHandler struct {
	emails EmailStore
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emails EmailStore) *EmailHandler {
	return &EmailHandler{emails: emails}
}

// List handles GET and POST /api/stored-emails
func (h *EmailHandler) List(c echo.Context) error {
	// Missing or invalid limit falls back to the store default
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	emails := h.emails.List(c.Request().Context(), limit)
	return response.OK(c, echo.Map{"emails": emails})
}

// Bulk handles POST /api/stored-emails/bulk and replaces every stored
// email with body.emails
func (h *EmailHandler) Bulk(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	items, ok := body["emails"].([]any)
	if !ok {
		return response.BadRequest(c, "emails must be an array")
	}

	updates := make([]models.EmailUpdate, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return response.BadRequest(c, "emails must contain objects")
		}
		updates = append(updates, models.EmailUpdateFromMap(m))
	}

	if !h.emails.SaveAll(c.Request().Context(), updates) {
		return response.InternalError(c, "failed to save emails")
	}
	return response.OK(c, echo.Map{"count": len(updates)})
}
