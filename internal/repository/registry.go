package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// RegistryRepository describes persistence operations for registry records.
type RegistryRepository interface {
	LoadRegistry(ctx context.Context) ([]entity.RegistryRecord, error)
	List(ctx context.Context, filter RegistryFilter) ([]entity.RegistryRecord, error)
	BulkUpsert(ctx context.Context, records []entity.RegistryRecord) (BulkUpsertResult, error)
}

// RegistryFilter narrows registry listings.
type RegistryFilter struct {
	Q          string
	Status     string
	ActiveOnly bool
	Page       int
	PerPage    int
}

// BulkUpsertResult summarises the number of rows inserted or updated.
type BulkUpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
}

// PGXRegistryRepository implements RegistryRepository using pgx.
type PGXRegistryRepository struct {
	pool pgxPool
}

// NewPGXRegistryRepository wires a pgx backed repository.
func NewPGXRegistryRepository(pool *pgxpool.Pool) *PGXRegistryRepository {
	return &PGXRegistryRepository{pool: pool}
}

const registryColumns = `abn, legal_name, trading_names, status_code, industry_code,
            address_line1, suburb, state, postcode, registered_at`

// LoadRegistry reads every registry record ordered by ABN.
func (r *PGXRegistryRepository) LoadRegistry(ctx context.Context) ([]entity.RegistryRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+registryColumns+` FROM registry_records ORDER BY abn`)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	defer rows.Close()

	return scanRegistry(rows)
}

// List returns a page of registry records matching the filter.
func (r *PGXRegistryRepository) List(ctx context.Context, filter RegistryFilter) ([]entity.RegistryRecord, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + registryColumns + ` FROM registry_records`)

	var (
		clauses []string
		args    []any
		idx     = 1
	)
	if filter.Q != "" {
		pattern := fmt.Sprintf("%%%s%%", filter.Q)
		clauses = append(clauses, fmt.Sprintf("(legal_name ILIKE $%d OR abn = $%d OR array_to_string(trading_names, ' ') ILIKE $%d)", idx, idx+1, idx))
		args = append(args, pattern, filter.Q)
		idx += 2
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(status_code) = LOWER($%d)", idx))
		args = append(args, filter.Status)
		idx++
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "LOWER(status_code) IN ('act', 'active', 'registered')")
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY legal_name ASC, abn ASC")

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1))
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	defer rows.Close()

	return scanRegistry(rows)
}

const bulkUpsertRegistrySQL = `
        INSERT INTO registry_records (abn, legal_name, trading_names, status_code, industry_code,
            address_line1, suburb, state, postcode, registered_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
        ON CONFLICT (abn) DO UPDATE SET
            legal_name = EXCLUDED.legal_name,
            trading_names = EXCLUDED.trading_names,
            status_code = EXCLUDED.status_code,
            industry_code = EXCLUDED.industry_code,
            address_line1 = EXCLUDED.address_line1,
            suburb = EXCLUDED.suburb,
            state = EXCLUDED.state,
            postcode = EXCLUDED.postcode,
            registered_at = COALESCE(EXCLUDED.registered_at, registry_records.registered_at),
            updated_at = NOW()
        RETURNING xmax = 0;
    `

// BulkUpsert persists a batch of registry records keyed by ABN in one
// transaction.
func (r *PGXRegistryRepository) BulkUpsert(ctx context.Context, records []entity.RegistryRecord) (BulkUpsertResult, error) {
	var result BulkUpsertResult
	if len(records) == 0 {
		return result, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, fmt.Errorf("start registry upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, record := range records {
		var inserted bool
		err := tx.QueryRow(ctx, bulkUpsertRegistrySQL,
			record.ABN,
			record.LegalName,
			stringSliceOrEmpty(record.TradingNames),
			record.StatusCode,
			stringOrNil(record.IndustryCode),
			stringOrNil(record.Address.Line1),
			stringOrNil(record.Address.Suburb),
			stringOrNil(record.Address.State),
			stringOrNil(record.Address.Postcode),
			record.RegisteredAt,
		).Scan(&inserted)
		if err != nil {
			return result, fmt.Errorf("upsert registry record %q: %w", record.ABN, err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
		result.Total++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit registry upsert tx: %w", err)
	}
	return result, nil
}

func scanRegistry(rows pgx.Rows) ([]entity.RegistryRecord, error) {
	var records []entity.RegistryRecord
	for rows.Next() {
		var (
			rec          entity.RegistryRecord
			tradingNames []string
			industryCode sql.NullString
			line1        sql.NullString
			suburb       sql.NullString
			state        sql.NullString
			postcode     sql.NullString
			registeredAt sql.NullTime
		)
		err := rows.Scan(
			&rec.ABN,
			&rec.LegalName,
			&tradingNames,
			&rec.StatusCode,
			&industryCode,
			&line1,
			&suburb,
			&state,
			&postcode,
			&registeredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan registry record: %w", err)
		}
		if len(tradingNames) > 0 {
			rec.TradingNames = append([]string(nil), tradingNames...)
		}
		rec.IndustryCode = industryCode.String
		rec.Address = entity.Address{
			Line1:    line1.String,
			Suburb:   suburb.String,
			State:    state.String,
			Postcode: postcode.String,
		}
		rec.RegisteredAt = nullTimeToPtr(registeredAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registry: %w", err)
	}
	return records, nil
}
