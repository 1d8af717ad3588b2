package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-generator/resolver/internal/dto"
	"github.com/octobees/leads-generator/resolver/internal/repository"
	"github.com/octobees/leads-generator/resolver/internal/service"
)

// RegistryHandler manages the company registry used for resolution.
type RegistryHandler struct {
	registryService *service.RegistryService
}

// NewRegistryHandler wires a handler backed by the registry service.
func NewRegistryHandler(registryService *service.RegistryService) *RegistryHandler {
	return &RegistryHandler{registryService: registryService}
}

// UploadCSV handles POST /admin/registry/upload-csv requests.
func (h *RegistryHandler) UploadCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	summary, err := h.registryService.ImportCSV(c.Request().Context(), file)
	if err != nil {
		var validationErr service.CSVValidationError
		if errors.As(err, &validationErr) {
			return Error(c, http.StatusBadRequest, validationErr.Error())
		}
		return Error(c, http.StatusInternalServerError, "failed to process registry csv")
	}

	return Success(c, http.StatusOK, "registry CSV processed", summary)
}

// Reload handles POST /admin/registry/reload requests.
func (h *RegistryHandler) Reload(c echo.Context) error {
	count, err := h.registryService.Reload(c.Request().Context())
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to reload registry")
	}
	return Success(c, http.StatusOK, "registry reloaded", dto.RegistryReloadResponse{
		Records:  count,
		LoadedAt: h.registryService.LoadedAt().UTC().Format(time.RFC3339),
	})
}

// List handles GET /admin/registry requests.
func (h *RegistryHandler) List(c echo.Context) error {
	filter := repository.RegistryFilter{
		Q:          strings.TrimSpace(c.QueryParam("q")),
		Status:     strings.TrimSpace(c.QueryParam("status")),
		ActiveOnly: c.QueryParam("active") == "true",
		Page:       1,
		PerPage:    20,
	}

	if page := c.QueryParam("page"); page != "" {
		value, err := strconv.Atoi(page)
		if err != nil || value < 1 {
			return Error(c, http.StatusBadRequest, "page must be a positive integer")
		}
		filter.Page = value
	}
	if perPage := c.QueryParam("per_page"); perPage != "" {
		value, err := strconv.Atoi(perPage)
		if err != nil || value < 1 {
			return Error(c, http.StatusBadRequest, "per_page must be a positive integer")
		}
		filter.PerPage = value
	}

	records, err := h.registryService.List(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list registry records")
	}
	return Success(c, http.StatusOK, "registry records retrieved", records)
}
