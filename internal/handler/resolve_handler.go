package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-generator/resolver/internal/dto"
	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/service"
)

// ResolveHandler exposes batch entity resolution.
type ResolveHandler struct {
	resolveService *service.ResolveService
}

// NewResolveHandler wires a handler backed by the resolve service.
func NewResolveHandler(resolveService *service.ResolveService) *ResolveHandler {
	return &ResolveHandler{resolveService: resolveService}
}

// Resolve handles POST /resolve requests.
func (h *ResolveHandler) Resolve(c echo.Context) error {
	var req dto.ResolveRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	decisions, summary, err := h.resolveService.Resolve(c.Request().Context(), req.CrawlRecords)
	if err != nil {
		return resolveError(c, err)
	}
	return Success(c, http.StatusOK, "crawl records resolved", toResolveResponse(decisions, summary))
}

// ResolveCSV handles POST /admin/resolve-csv requests.
func (h *ResolveHandler) ResolveCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	decisions, summary, err := h.resolveService.ResolveCSV(c.Request().Context(), file)
	if err != nil {
		return resolveError(c, err)
	}
	return Success(c, http.StatusOK, "crawl CSV resolved", toResolveResponse(decisions, summary))
}

// History handles GET /reviews/decisions/:crawl_id requests.
func (h *ResolveHandler) History(c echo.Context) error {
	decisions, err := h.resolveService.History(c.Request().Context(), c.Param("crawl_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCrawlID):
			return Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNoHistory):
			return Error(c, http.StatusNotImplemented, err.Error())
		default:
			return Error(c, http.StatusInternalServerError, "failed to load decision history")
		}
	}
	if len(decisions) == 0 {
		return Error(c, http.StatusNotFound, "no decisions recorded for crawl record")
	}
	return Success(c, http.StatusOK, "decision history retrieved", decisions)
}

func resolveError(c echo.Context, err error) error {
	var validationErr service.CSVValidationError
	switch {
	case errors.As(err, &validationErr):
		return Error(c, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, service.ErrEmptyBatch), errors.Is(err, service.ErrMissingCrawlID):
		return Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBatchTooLarge):
		return Error(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrRegistryEmpty):
		return Error(c, http.StatusServiceUnavailable, "registry is not loaded")
	default:
		return Error(c, http.StatusInternalServerError, "failed to resolve crawl records")
	}
}

func toResolveResponse(decisions []entity.MatchDecision, summary service.ResolveSummary) dto.ResolveResponse {
	return dto.ResolveResponse{
		Decisions: decisions,
		Counts: dto.OutcomeCounts{
			Total:               summary.Total,
			Accepted:            summary.Accepted,
			Rejected:            summary.Rejected,
			QueuedForReview:     summary.QueuedForReview,
			AdjudicationPending: summary.AdjudicationPending,
		},
	}
}
