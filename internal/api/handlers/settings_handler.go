package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/mixelka/mailsync/internal/api/response"
	"github.com/mixelka/mailsync/pkg/models"
)

// SettingsHandler handles settings HTTP requests
type SettingsHandler struct {
	settings SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List handles GET /api/settings and GET /api/settings/:category
func (h *SettingsHandler) List(c echo.Context) error {
	category := c.Param("category")
	if category == "" {
		category = c.QueryParam("category")
	}
	return response.Success(c, h.settings.List(c.Request().Context(), category))
}

// Save handles POST /api/settings and POST /api/settings/:category.
// The path category wins over one in the body.
func (h *SettingsHandler) Save(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	in := models.SettingInputFromMap(body)
	if category := c.Param("category"); category != "" {
		in.Category = category
	}
	if in.Key == "" {
		return response.BadRequest(c, "key is required")
	}

	if !h.settings.CreateOrUpdate(c.Request().Context(), in) {
		return response.InternalError(c, "failed to save setting")
	}
	return response.OK(c, nil)
}

// Object handles GET /api/settings/:category/object
func (h *SettingsHandler) Object(c echo.Context) error {
	return response.Success(c, h.settings.Object(c.Request().Context(), c.Param("category")))
}

// Bulk handles POST /api/settings/:category/bulk and replaces the
// category with body.settings
func (h *SettingsHandler) Bulk(c echo.Context) error {
	body, err := bindMap(c)
	if err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	obj, ok := body["settings"].(map[string]any)
	if !ok {
		return response.BadRequest(c, "settings must be an object")
	}

	if !h.settings.SaveObject(c.Request().Context(), c.Param("category"), models.StringMap(obj)) {
		return response.InternalError(c, "failed to save settings")
	}
	return response.OK(c, nil)
}
