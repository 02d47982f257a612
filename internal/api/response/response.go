package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Success returns a successful response with data
func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// OK returns a successful response with the given fields next to the
// success flag. A success entry in fields wins.
func OK(c echo.Context, fields echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// InternalError returns a 500 Internal Server Error response
func InternalError(c echo.Context, message string) error {
	return Error(c, http.StatusInternalServerError, message)
}

// BadGateway returns a 502 response for failures of an upstream service
func BadGateway(c echo.Context, message string) error {
	return Error(c, http.StatusBadGateway, message)
}

// Error returns an error response with the given status code
func Error(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   message,
	})
}
