package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// DecisionsRepository stores resolution decisions.
type DecisionsRepository interface {
	SaveDecision(ctx context.Context, decision entity.MatchDecision) error
	ListByCrawl(ctx context.Context, crawlID string) ([]entity.MatchDecision, error)
}

// PGXDecisionsRepository implements DecisionsRepository using pgx.
type PGXDecisionsRepository struct {
	pool pgxPool
}

// NewPGXDecisionsRepository wires a pgx backed repository.
func NewPGXDecisionsRepository(pool *pgxpool.Pool) *PGXDecisionsRepository {
	return &PGXDecisionsRepository{pool: pool}
}

// SaveDecision appends a decision row. The candidate pair is stored as JSON.
func (r *PGXDecisionsRepository) SaveDecision(ctx context.Context, decision entity.MatchDecision) error {
	var (
		abn       any
		candidate = []byte("null")
	)
	if decision.Candidate != nil {
		abn = decision.Candidate.Registry.ABN
		raw, err := json.Marshal(decision.Candidate)
		if err != nil {
			return fmt.Errorf("marshal candidate: %w", err)
		}
		candidate = raw
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO match_decisions (
            crawl_id, outcome, method, composite, exact, abn, reasoning, factors,
            confidence, review_recommended, review_id, adjudication_calls, candidate, decided_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::jsonb,$14)
    `,
		decision.CrawlID,
		string(decision.Outcome),
		decision.Method,
		decision.Composite,
		decision.Exact,
		abn,
		stringOrNil(decision.Reasoning),
		stringSliceOrEmpty(decision.Factors),
		decision.Confidence,
		decision.ReviewRecommended,
		decision.ReviewID,
		decision.AdjudicationCalls,
		string(candidate),
		decision.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ListByCrawl returns the decision history of a crawl record, newest first.
func (r *PGXDecisionsRepository) ListByCrawl(ctx context.Context, crawlID string) ([]entity.MatchDecision, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT crawl_id, outcome, method, composite, exact, reasoning, factors,
               confidence, review_recommended, review_id, adjudication_calls, candidate, decided_at
        FROM match_decisions
        WHERE crawl_id = $1
        ORDER BY decided_at DESC
    `, crawlID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func scanDecisions(rows pgx.Rows) ([]entity.MatchDecision, error) {
	var decisions []entity.MatchDecision
	for rows.Next() {
		var (
			d          entity.MatchDecision
			outcome    string
			reasoning  sql.NullString
			factors    []string
			confidence sql.NullFloat64
			reviewID   *uuid.UUID
			candidate  []byte
		)
		err := rows.Scan(
			&d.CrawlID,
			&outcome,
			&d.Method,
			&d.Composite,
			&d.Exact,
			&reasoning,
			&factors,
			&confidence,
			&d.ReviewRecommended,
			&reviewID,
			&d.AdjudicationCalls,
			&candidate,
			&d.DecidedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Outcome = entity.Outcome(outcome)
		d.Reasoning = reasoning.String
		if len(factors) > 0 {
			d.Factors = append([]string(nil), factors...)
		}
		if confidence.Valid {
			val := confidence.Float64
			d.Confidence = &val
		}
		d.ReviewID = reviewID
		if len(candidate) > 0 && string(candidate) != "null" {
			var c entity.MatchCandidate
			if err := json.Unmarshal(candidate, &c); err != nil {
				return nil, fmt.Errorf("unmarshal candidate: %w", err)
			}
			d.Candidate = &c
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return decisions, nil
}
