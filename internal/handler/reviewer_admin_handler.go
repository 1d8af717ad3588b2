package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-generator/resolver/internal/dto"
	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/service"
)

// ReviewerAdminHandler exposes reviewer account management for admins.
type ReviewerAdminHandler struct {
	authService *service.AuthService
}

// NewReviewerAdminHandler constructs a handler instance.
func NewReviewerAdminHandler(authService *service.AuthService) *ReviewerAdminHandler {
	return &ReviewerAdminHandler{authService: authService}
}

// List returns all reviewer accounts.
func (h *ReviewerAdminHandler) List(c echo.Context) error {
	reviewers, err := h.authService.ListReviewers(c.Request().Context())
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list reviewers")
	}

	resp := make([]dto.ReviewerResponse, 0, len(reviewers))
	for _, r := range reviewers {
		resp = append(resp, toReviewerResponse(r))
	}
	return Success(c, http.StatusOK, "reviewers retrieved", resp)
}

// Create provisions a new reviewer account.
func (h *ReviewerAdminHandler) Create(c echo.Context) error {
	var req dto.CreateReviewerRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	reviewer, err := h.authService.CreateReviewer(c.Request().Context(), req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists):
			return Error(c, http.StatusConflict, "email already exists")
		case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidReviewer):
			return Error(c, http.StatusBadRequest, err.Error())
		default:
			return Error(c, http.StatusInternalServerError, "failed to create reviewer")
		}
	}

	return Success(c, http.StatusCreated, "reviewer created", toReviewerResponse(*reviewer))
}

func toReviewerResponse(r entity.Reviewer) dto.ReviewerResponse {
	return dto.ReviewerResponse{ID: r.ID.String(), Email: r.Email, Role: r.Role}
}
