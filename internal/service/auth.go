package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/octobees/leads-generator/resolver/internal/auth"
	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidRole        = errors.New("role must be reviewer or admin")
	ErrInvalidReviewer    = errors.New("invalid reviewer")
)

const minPasswordLen = 8

// AuthService coordinates reviewer credentials and token issuance.
type AuthService struct {
	reviewers repository.ReviewersRepository
	jwt       *auth.JWTManager
}

// NewAuthService constructs a new AuthService.
func NewAuthService(reviewers repository.ReviewersRepository, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{reviewers: reviewers, jwt: jwtManager}
}

// Login validates credentials and returns a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", errors.New("email and password must not be empty")
	}

	reviewer, err := s.reviewers.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrReviewerNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(reviewer.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.jwt.GenerateToken(reviewer.ID.String(), reviewer.Email, reviewer.Role)
}

// CreateReviewer registers a reviewer account. An empty role defaults to
// reviewer.
func (s *AuthService) CreateReviewer(ctx context.Context, email, password, role string) (*entity.Reviewer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	role = strings.TrimSpace(role)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidReviewer)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidReviewer, minPasswordLen)
	}
	if role == "" {
		role = auth.RoleReviewer
	}
	if !auth.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	reviewer, err := s.reviewers.Create(ctx, email, string(hashed), role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailDuplicate) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}
	return reviewer, nil
}

// ListReviewers returns every reviewer account.
func (s *AuthService) ListReviewers(ctx context.Context) ([]entity.Reviewer, error) {
	return s.reviewers.List(ctx)
}

// TokenTTL reports how long issued tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwt.TTL()
}
