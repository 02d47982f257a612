package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger checks a database connection
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	engine string
	db     Pinger
}

// NewHealthHandler creates a new HealthHandler. db is nil for the JSON
// file engine.
func NewHealthHandler(engine string, db Pinger) *HealthHandler {
	return &HealthHandler{engine: engine, db: db}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	services := map[string]string{"storage": h.engine}
	status := "healthy"

	if h.db != nil {
		if err := h.db.PingContext(c.Request().Context()); err != nil {
			services["database"] = "unhealthy"
			status = "unhealthy"
		} else {
			services["database"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}
