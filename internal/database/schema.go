package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS registry_records (
        abn            TEXT PRIMARY KEY,
        legal_name     TEXT NOT NULL,
        trading_names  TEXT[] NOT NULL DEFAULT '{}',
        status_code    TEXT NOT NULL,
        industry_code  TEXT,
        address_line1  TEXT,
        suburb         TEXT,
        state          TEXT,
        postcode       TEXT,
        registered_at  TIMESTAMPTZ,
        created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS match_decisions (
        id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        crawl_id           TEXT NOT NULL,
        outcome            TEXT NOT NULL,
        method             TEXT NOT NULL,
        composite          DOUBLE PRECISION NOT NULL,
        exact              BOOLEAN NOT NULL DEFAULT FALSE,
        abn                TEXT,
        reasoning          TEXT,
        factors            TEXT[] NOT NULL DEFAULT '{}',
        confidence         DOUBLE PRECISION,
        review_recommended BOOLEAN NOT NULL DEFAULT FALSE,
        review_id          UUID,
        adjudication_calls INTEGER NOT NULL DEFAULT 0,
        candidate          JSONB,
        decided_at         TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS match_decisions_crawl_id_idx ON match_decisions (crawl_id, decided_at DESC)`,
	`CREATE TABLE IF NOT EXISTS review_items (
        id              UUID PRIMARY KEY,
        crawl_id        TEXT NOT NULL,
        abn             TEXT NOT NULL,
        status          TEXT NOT NULL,
        priority        TEXT NOT NULL,
        score           DOUBLE PRECISION NOT NULL,
        estimated_value DOUBLE PRECISION NOT NULL DEFAULT 0,
        reasoning       TEXT,
        factors         TEXT[] NOT NULL DEFAULT '{}',
        candidate       JSONB NOT NULL,
        created_at      TIMESTAMPTZ NOT NULL,
        claimed_by      TEXT,
        claimed_at      TIMESTAMPTZ,
        resolved_by     TEXT,
        resolved_at     TIMESTAMPTZ,
        notes           TEXT,
        updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS review_items_open_idx ON review_items (status) WHERE status IN ('pending', 'in_progress')`,
	`CREATE TABLE IF NOT EXISTS reviewers (
        id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
        email         TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        role          TEXT NOT NULL DEFAULT 'reviewer',
        created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
}

// EnsureSchema creates the resolver tables when they are missing.
func EnsureSchema(ctx context.Context, db execer) error {
	for idx, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", idx, err)
		}
	}
	return nil
}
