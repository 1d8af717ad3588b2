package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

var (
	// ErrReviewerNotFound is returned when no reviewer matches the lookup criteria.
	ErrReviewerNotFound = errors.New("reviewer not found")
	ErrEmailDuplicate   = errors.New("email already exists")
)

// ReviewersRepository declares operations for reviewer accounts.
type ReviewersRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.Reviewer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reviewer, error)
	Create(ctx context.Context, email, passwordHash, role string) (*entity.Reviewer, error)
	List(ctx context.Context) ([]entity.Reviewer, error)
}

// PGXReviewersRepository implements ReviewersRepository with pgx.
type PGXReviewersRepository struct {
	pool pgxPool
}

// NewPGXReviewersRepository instantiates a reviewers repository.
func NewPGXReviewersRepository(pool *pgxpool.Pool) *PGXReviewersRepository {
	return &PGXReviewersRepository{pool: pool}
}

const reviewerColumns = `id, email, password_hash, role, created_at, updated_at`

// FindByEmail fetches a reviewer by email if present.
func (r *PGXReviewersRepository) FindByEmail(ctx context.Context, email string) (*entity.Reviewer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reviewerColumns+` FROM reviewers WHERE email = $1`, email)
	reviewer, err := scanReviewer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewerNotFound
		}
		return nil, fmt.Errorf("query reviewer by email: %w", err)
	}
	return reviewer, nil
}

// FindByID retrieves a reviewer by identifier.
func (r *PGXReviewersRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reviewer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reviewerColumns+` FROM reviewers WHERE id = $1`, id)
	reviewer, err := scanReviewer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewerNotFound
		}
		return nil, fmt.Errorf("query reviewer by id: %w", err)
	}
	return reviewer, nil
}

// Create inserts a new reviewer row.
func (r *PGXReviewersRepository) Create(ctx context.Context, email, passwordHash, role string) (*entity.Reviewer, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO reviewers (email, password_hash, role)
        VALUES ($1, $2, $3)
        RETURNING `+reviewerColumns, email, passwordHash, role)

	reviewer, err := scanReviewer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %v", ErrEmailDuplicate, pgErr)
		}
		return nil, fmt.Errorf("insert reviewer: %w", err)
	}
	return reviewer, nil
}

// List returns all reviewers ordered by creation date (desc).
func (r *PGXReviewersRepository) List(ctx context.Context) ([]entity.Reviewer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reviewerColumns+` FROM reviewers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	defer rows.Close()

	var reviewers []entity.Reviewer
	for rows.Next() {
		reviewer, err := scanReviewer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reviewer row: %w", err)
		}
		reviewers = append(reviewers, *reviewer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviewers: %w", err)
	}
	return reviewers, nil
}

func scanReviewer(row pgx.Row) (*entity.Reviewer, error) {
	var reviewer entity.Reviewer
	if err := row.Scan(&reviewer.ID, &reviewer.Email, &reviewer.PasswordHash, &reviewer.Role, &reviewer.CreatedAt, &reviewer.UpdatedAt); err != nil {
		return nil, err
	}
	return &reviewer, nil
}
