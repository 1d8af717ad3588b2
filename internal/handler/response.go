package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-generator/resolver/internal/middleware"
)

// APIResponse describes the standard envelope returned by the API.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	payload := APIResponse{
		Status:    "success",
		Message:   message,
		Data:      data,
		RequestID: middleware.RequestIDFromContext(c),
	}
	return c.JSON(status, payload)
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	payload := APIResponse{
		Status:    "error",
		Message:   message,
		RequestID: middleware.RequestIDFromContext(c),
	}
	return c.JSON(status, payload)
}
