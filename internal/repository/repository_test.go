package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

func reviewerScan(email, role string) func(dest ...any) error {
	return func(dest ...any) error {
		created := time.Now()
		*dest[0].(*uuid.UUID) = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
		*dest[1].(*string) = email
		*dest[2].(*string) = "hashed"
		*dest[3].(*string) = role
		*dest[4].(*time.Time) = created
		*dest[5].(*time.Time) = created
		return nil
	}
}

func TestPGXReviewersRepository_FindByEmail(t *testing.T) {
	repo := &PGXReviewersRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: reviewerScan("reviewer@example.com", "reviewer")}
		},
	}}

	reviewer, err := repo.FindByEmail(context.Background(), "reviewer@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reviewer.Email != "reviewer@example.com" || reviewer.Role != "reviewer" {
		t.Fatalf("unexpected reviewer: %+v", reviewer)
	}

	repo.pool = &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}
	if _, err := repo.FindByEmail(context.Background(), "missing@example.com"); !errors.Is(err, ErrReviewerNotFound) {
		t.Fatalf("expected ErrReviewerNotFound, got %v", err)
	}
	if _, err := repo.FindByID(context.Background(), uuid.New()); !errors.Is(err, ErrReviewerNotFound) {
		t.Fatalf("expected ErrReviewerNotFound, got %v", err)
	}
}

func TestPGXReviewersRepository_CreateDuplicate(t *testing.T) {
	repo := &PGXReviewersRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error {
				return &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "reviewers_email_key"`}
			}}
		},
	}}

	if _, err := repo.Create(context.Background(), "dup@example.com", "hash", "reviewer"); !errors.Is(err, ErrEmailDuplicate) {
		t.Fatalf("expected ErrEmailDuplicate, got %v", err)
	}
}

func TestPGXReviewersRepository_List(t *testing.T) {
	repo := &PGXReviewersRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			return &stubRows{scans: []func(dest ...any) error{
				reviewerScan("admin@example.com", "admin"),
				reviewerScan("reviewer@example.com", "reviewer"),
			}}, nil
		},
	}}

	rows, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0].Email != "admin@example.com" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func registryScan(abn, name string, trading []string) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = abn
		*dest[1].(*string) = name
		*dest[2].(*[]string) = trading
		*dest[3].(*string) = "ACT"
		*dest[4].(*sql.NullString) = sql.NullString{String: "7000", Valid: true}
		*dest[5].(*sql.NullString) = sql.NullString{String: "1 George St", Valid: true}
		*dest[6].(*sql.NullString) = sql.NullString{String: "Sydney", Valid: true}
		*dest[7].(*sql.NullString) = sql.NullString{String: "NSW", Valid: true}
		*dest[8].(*sql.NullString) = sql.NullString{}
		*dest[9].(*sql.NullTime) = sql.NullTime{Time: time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC), Valid: true}
		return nil
	}
}

func TestPGXRegistryRepository_LoadRegistry(t *testing.T) {
	repo := &PGXRegistryRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			return &stubRows{scans: []func(dest ...any) error{
				registryScan("51824753556", "Acme Technology Pty Ltd", []string{"Acme Tech"}),
				registryScan("11111111111", "Melbourne Bakery Pty Ltd", nil),
			}}, nil
		},
	}}

	records, err := repo.LoadRegistry(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	acme := records[0]
	if acme.LegalName != "Acme Technology Pty Ltd" || len(acme.TradingNames) != 1 || acme.IndustryCode != "7000" {
		t.Fatalf("unexpected record: %+v", acme)
	}
	if acme.Address.Suburb != "Sydney" || acme.Address.Postcode != "" || acme.RegisteredAt == nil {
		t.Fatalf("unexpected address fields: %+v", acme)
	}
	if records[1].TradingNames != nil {
		t.Fatalf("expected nil trading names, got %v", records[1].TradingNames)
	}
}

func TestPGXRegistryRepository_LoadRegistryIterError(t *testing.T) {
	repo := &PGXRegistryRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			return &stubRows{err: errors.New("connection reset")}, nil
		},
	}}
	if _, err := repo.LoadRegistry(context.Background()); err == nil {
		t.Fatalf("expected iteration error")
	}
}

func TestPGXRegistryRepository_ListBuildsFilter(t *testing.T) {
	var gotQuery string
	var gotArgs []any
	repo := &PGXRegistryRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			gotQuery, gotArgs = query, args
			return &stubRows{}, nil
		},
	}}

	if _, err := repo.List(context.Background(), RegistryFilter{Q: "acme", Status: "act", ActiveOnly: true, Page: 2, PerPage: 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "legal_name ILIKE $1") || !strings.Contains(gotQuery, "LOWER(status_code) = LOWER($3)") {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, "LIMIT $4 OFFSET $5") {
		t.Fatalf("expected pagination placeholders, got %s", gotQuery)
	}
	if len(gotArgs) != 5 || gotArgs[3] != 100 || gotArgs[4] != 100 {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
}

func TestPGXRegistryRepository_BulkUpsert(t *testing.T) {
	calls := 0
	tx := &stubTx{queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
		calls++
		inserted := calls == 1
		return &stubRow{scan: func(dest ...any) error {
			*dest[0].(*bool) = inserted
			return nil
		}}
	}}
	repo := &PGXRegistryRepository{pool: &stubPool{
		beginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}}

	result, err := repo.BulkUpsert(context.Background(), []entity.RegistryRecord{
		{ABN: "1", LegalName: "One Pty Ltd", StatusCode: "ACT"},
		{ABN: "2", LegalName: "Two Pty Ltd", StatusCode: "CAN"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Inserted != 1 || result.Updated != 1 || result.Total != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected commit without rollback")
	}

	empty, err := (&PGXRegistryRepository{}).BulkUpsert(context.Background(), nil)
	if err != nil || empty.Total != 0 {
		t.Fatalf("expected empty result, got %+v %v", empty, err)
	}
}

func TestPGXRegistryRepository_BulkUpsertRollsBack(t *testing.T) {
	tx := &stubTx{queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
		return &stubRow{scan: func(dest ...any) error { return errors.New("constraint violated") }}
	}}
	repo := &PGXRegistryRepository{pool: &stubPool{
		beginTxFunc: func(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) { return tx, nil },
	}}

	if _, err := repo.BulkUpsert(context.Background(), []entity.RegistryRecord{{ABN: "1"}}); err == nil {
		t.Fatalf("expected error")
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback")
	}
}

func TestPGXDecisionsRepository_SaveDecision(t *testing.T) {
	var gotArgs []any
	repo := &PGXDecisionsRepository{pool: &stubPool{
		execFunc: func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
			gotArgs = args
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}}

	confidence := 0.8
	candidate := entity.MatchCandidate{Registry: entity.RegistryRecord{ABN: "51824753556"}, Composite: 0.7}
	err := repo.SaveDecision(context.Background(), entity.MatchDecision{
		CrawlID:    "c1",
		Outcome:    entity.OutcomeAccepted,
		Method:     entity.MethodAdjudicated,
		Composite:  0.7,
		Confidence: &confidence,
		Candidate:  &candidate,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotArgs[0] != "c1" || gotArgs[1] != "accepted" || gotArgs[5] != "51824753556" {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	var stored entity.MatchCandidate
	if err := json.Unmarshal([]byte(gotArgs[12].(string)), &stored); err != nil || stored.Registry.ABN != "51824753556" {
		t.Fatalf("candidate not serialised: %v %+v", err, stored)
	}

	if err := repo.SaveDecision(context.Background(), entity.MatchDecision{CrawlID: "c2", Outcome: entity.OutcomeRejected}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotArgs[5] != nil || gotArgs[12] != "null" {
		t.Fatalf("expected null candidate columns, got %v", gotArgs)
	}
}

func TestPGXDecisionsRepository_ListByCrawl(t *testing.T) {
	reviewID := uuid.New()
	repo := &PGXDecisionsRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			return &stubRows{scans: []func(dest ...any) error{
				func(dest ...any) error {
					*dest[0].(*string) = "c1"
					*dest[1].(*string) = "queued_for_review"
					*dest[2].(*string) = "manual_review"
					*dest[3].(*float64) = 0.55
					*dest[4].(*bool) = false
					*dest[5].(*sql.NullString) = sql.NullString{String: "needs a human", Valid: true}
					*dest[6].(*[]string) = []string{"name"}
					*dest[7].(*sql.NullFloat64) = sql.NullFloat64{}
					*dest[8].(*bool) = false
					*dest[9].(**uuid.UUID) = &reviewID
					*dest[10].(*int) = 0
					*dest[11].(*[]byte) = []byte(`{"registry":{"abn":"1"},"composite":0.55}`)
					*dest[12].(*time.Time) = time.Now()
					return nil
				},
			}}, nil
		},
	}}

	decisions, err := repo.ListByCrawl(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	d := decisions[0]
	if d.Outcome != entity.OutcomeQueuedForReview || d.Confidence != nil || d.ReviewID == nil || *d.ReviewID != reviewID {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Candidate == nil || d.Candidate.Registry.ABN != "1" {
		t.Fatalf("expected candidate decoded, got %+v", d.Candidate)
	}
}

func TestPGXReviewsRepository_Publish(t *testing.T) {
	var (
		gotArgs  []any
		gotQuery string
	)
	repo := &PGXReviewsRepository{pool: &stubPool{
		execFunc: func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
			gotArgs = args
			gotQuery = query
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}}

	item := entity.ReviewItem{
		ID:        uuid.New(),
		Candidate: entity.MatchCandidate{Crawl: entity.CrawlRecord{ID: "c1"}, Registry: entity.RegistryRecord{ABN: "1"}},
		Score:     0.5,
		Priority:  entity.PriorityHigh,
		Status:    entity.ReviewPending,
	}
	if err := repo.Publish(context.Background(), entity.ReviewEvent{Type: entity.ReviewEventCreated, Item: item}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotArgs[0] != item.ID || gotArgs[1] != "c1" || gotArgs[3] != "pending" || gotArgs[4] != "high" {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	for _, guard := range []string{
		"WHERE review_items.status IN ('pending', 'in_progress')",
		"EXCLUDED.status <> 'pending' OR review_items.status = 'pending'",
	} {
		if !strings.Contains(gotQuery, guard) {
			t.Fatalf("upsert must not move a row backwards, missing %q", guard)
		}
	}

	repo.pool = &stubPool{execFunc: func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("db down")
	}}
	if err := repo.Publish(context.Background(), entity.ReviewEvent{Type: entity.ReviewEventClaimed, Item: item}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPGXReviewsRepository_ListOpen(t *testing.T) {
	id := uuid.New()
	repo := &PGXReviewsRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			return &stubRows{scans: []func(dest ...any) error{
				func(dest ...any) error {
					*dest[0].(*uuid.UUID) = id
					*dest[1].(*string) = "in_progress"
					*dest[2].(*string) = "medium"
					*dest[3].(*float64) = 0.68
					*dest[4].(*float64) = 40
					*dest[5].(*sql.NullString) = sql.NullString{}
					*dest[6].(*[]string) = nil
					*dest[7].(*[]byte) = []byte(`{"crawl":{"id":"c1"},"registry":{"abn":"1"}}`)
					*dest[8].(*time.Time) = time.Now()
					*dest[9].(*sql.NullString) = sql.NullString{String: "alice", Valid: true}
					*dest[10].(*sql.NullTime) = sql.NullTime{Time: time.Now(), Valid: true}
					*dest[11].(*sql.NullString) = sql.NullString{}
					*dest[12].(*sql.NullTime) = sql.NullTime{}
					*dest[13].(*sql.NullString) = sql.NullString{}
					return nil
				},
			}}, nil
		},
	}}

	items, err := repo.ListOpen(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.ID != id || item.Status != entity.ReviewInProgress || item.Priority != entity.PriorityMedium {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.ClaimedBy == nil || *item.ClaimedBy != "alice" || item.ResolvedAt != nil {
		t.Fatalf("unexpected claim fields: %+v", item)
	}
	if item.Candidate.Crawl.ID != "c1" {
		t.Fatalf("candidate not decoded: %+v", item.Candidate)
	}
}
