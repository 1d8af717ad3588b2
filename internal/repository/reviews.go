package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// ReviewsRepository mirrors the review queue into postgres.
type ReviewsRepository interface {
	Publish(ctx context.Context, event entity.ReviewEvent) error
	ListOpen(ctx context.Context) ([]entity.ReviewItem, error)
}

// PGXReviewsRepository implements ReviewsRepository using pgx. It is used as
// a review event sink, so every lifecycle event upserts the item row.
type PGXReviewsRepository struct {
	pool pgxPool
}

// NewPGXReviewsRepository wires a pgx backed repository.
func NewPGXReviewsRepository(pool *pgxpool.Pool) *PGXReviewsRepository {
	return &PGXReviewsRepository{pool: pool}
}

const upsertReviewSQL = `
        INSERT INTO review_items (
            id, crawl_id, abn, status, priority, score, estimated_value, reasoning, factors,
            candidate, created_at, claimed_by, claimed_at, resolved_by, resolved_at, notes, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11,$12,$13,$14,$15,$16,NOW())
        ON CONFLICT (id) DO UPDATE SET
            status = EXCLUDED.status,
            claimed_by = EXCLUDED.claimed_by,
            claimed_at = EXCLUDED.claimed_at,
            resolved_by = EXCLUDED.resolved_by,
            resolved_at = EXCLUDED.resolved_at,
            notes = EXCLUDED.notes,
            updated_at = NOW()
        WHERE review_items.status IN ('pending', 'in_progress')
          AND (EXCLUDED.status <> 'pending' OR review_items.status = 'pending');
    `

// Publish stores the item state carried by the event. Rows only move forward:
// terminal rows are never rewritten and in-progress rows never fall back to
// pending.
func (r *PGXReviewsRepository) Publish(ctx context.Context, event entity.ReviewEvent) error {
	item := event.Item
	candidate, err := json.Marshal(item.Candidate)
	if err != nil {
		return fmt.Errorf("marshal review candidate: %w", err)
	}

	_, err = r.pool.Exec(ctx, upsertReviewSQL,
		item.ID,
		item.Candidate.Crawl.ID,
		item.Candidate.Registry.ABN,
		string(item.Status),
		string(item.Priority),
		item.Score,
		item.EstimatedValue,
		stringOrNil(item.Reasoning),
		stringSliceOrEmpty(item.Factors),
		string(candidate),
		item.CreatedAt,
		item.ClaimedBy,
		item.ClaimedAt,
		item.ResolvedBy,
		item.ResolvedAt,
		item.Notes,
	)
	if err != nil {
		return fmt.Errorf("upsert review item %s (%s): %w", item.ID, event.Type, err)
	}
	return nil
}

// ListOpen returns pending and in-progress items, oldest first.
func (r *PGXReviewsRepository) ListOpen(ctx context.Context) ([]entity.ReviewItem, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, status, priority, score, estimated_value, reasoning, factors, candidate,
               created_at, claimed_by, claimed_at, resolved_by, resolved_at, notes
        FROM review_items
        WHERE status IN ('pending', 'in_progress')
        ORDER BY created_at ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("list open reviews: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

func scanReviews(rows pgx.Rows) ([]entity.ReviewItem, error) {
	var items []entity.ReviewItem
	for rows.Next() {
		var (
			item       entity.ReviewItem
			status     string
			priority   string
			reasoning  sql.NullString
			factors    []string
			candidate  []byte
			claimedBy  sql.NullString
			claimedAt  sql.NullTime
			resolvedBy sql.NullString
			resolvedAt sql.NullTime
			notes      sql.NullString
		)
		err := rows.Scan(
			&item.ID,
			&status,
			&priority,
			&item.Score,
			&item.EstimatedValue,
			&reasoning,
			&factors,
			&candidate,
			&item.CreatedAt,
			&claimedBy,
			&claimedAt,
			&resolvedBy,
			&resolvedAt,
			&notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		if err := json.Unmarshal(candidate, &item.Candidate); err != nil {
			return nil, fmt.Errorf("unmarshal review candidate: %w", err)
		}
		item.Status = entity.ReviewStatus(status)
		item.Priority = entity.Priority(priority)
		item.Reasoning = reasoning.String
		if len(factors) > 0 {
			item.Factors = append([]string(nil), factors...)
		}
		item.ClaimedBy = nullStringToPtr(claimedBy)
		item.ClaimedAt = nullTimeToPtr(claimedAt)
		item.ResolvedBy = nullStringToPtr(resolvedBy)
		item.ResolvedAt = nullTimeToPtr(resolvedAt)
		item.Notes = nullStringToPtr(notes)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review items: %w", err)
	}
	return items, nil
}
