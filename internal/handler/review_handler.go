package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-generator/resolver/internal/dto"
	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/middleware"
	"github.com/octobees/leads-generator/resolver/internal/service/review"
)

// ReviewHandler exposes the manual review queue to reviewers.
type ReviewHandler struct {
	workflow *review.Workflow
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(workflow *review.Workflow) *ReviewHandler {
	return &ReviewHandler{workflow: workflow}
}

// List handles GET /reviews requests, returning pending items by priority.
func (h *ReviewHandler) List(c echo.Context) error {
	priority := entity.Priority(c.QueryParam("priority"))
	switch priority {
	case "", entity.PriorityHigh, entity.PriorityMedium, entity.PriorityLow:
	default:
		return Error(c, http.StatusBadRequest, "priority must be high, medium or low")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return Error(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = value
	}

	return Success(c, http.StatusOK, "pending reviews retrieved", h.workflow.Pending(priority, limit))
}

// Summary handles GET /reviews/summary requests.
func (h *ReviewHandler) Summary(c echo.Context) error {
	return Success(c, http.StatusOK, "review summary", h.workflow.Summary())
}

// Report handles GET /reviews/report requests.
func (h *ReviewHandler) Report(c echo.Context) error {
	includeCompleted := c.QueryParam("include_completed") == "true"
	return Success(c, http.StatusOK, "review report", h.workflow.Report(includeCompleted))
}

// Get handles GET /reviews/:id requests.
func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid review id")
	}

	item, err := h.workflow.Get(id)
	if err != nil {
		return reviewError(c, err)
	}
	return Success(c, http.StatusOK, "review retrieved", item)
}

// ClaimNext handles POST /reviews/claim-next requests.
func (h *ReviewHandler) ClaimNext(c echo.Context) error {
	item, err := h.workflow.ClaimNext(c.Request().Context(), middleware.ReviewerFromContext(c))
	if err != nil {
		return reviewError(c, err)
	}
	return Success(c, http.StatusOK, "review claimed", item)
}

// Claim handles POST /reviews/:id/claim requests.
func (h *ReviewHandler) Claim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid review id")
	}

	item, err := h.workflow.Claim(c.Request().Context(), id, middleware.ReviewerFromContext(c))
	if err != nil {
		return reviewError(c, err)
	}
	return Success(c, http.StatusOK, "review claimed", item)
}

// Resolve handles POST /reviews/:id/resolve requests.
func (h *ReviewHandler) Resolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid review id")
	}

	var req dto.ResolveReviewRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if req.Approve == nil {
		return Error(c, http.StatusBadRequest, "approve is required")
	}

	item, err := h.workflow.Resolve(c.Request().Context(), id, *req.Approve, middleware.ReviewerFromContext(c), req.Notes)
	if err != nil {
		return reviewError(c, err)
	}
	return Success(c, http.StatusOK, "review resolved", item)
}

func reviewError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, review.ErrNotFound):
		return Error(c, http.StatusNotFound, "review item not found")
	case errors.Is(err, review.ErrQueueEmpty):
		return Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, review.ErrInvalidStateTransition), errors.Is(err, review.ErrNotClaimant):
		return Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, review.ErrReviewerRequired):
		return Error(c, http.StatusUnauthorized, err.Error())
	default:
		return Error(c, http.StatusInternalServerError, "review operation failed")
	}
}
