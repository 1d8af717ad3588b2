package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

func (e CSVValidationError) Error() string {
	return e.Message
}

// listSeparator splits multi-valued CSV cells such as trading names.
const listSeparator = ";"

var (
	requiredRegistryHeaders = []string{"abn", "legal_name", "status_code"}
	requiredCrawlHeaders    = []string{"id", "company_name"}
)

// ParseRegistryCSV reads registry records. Rows without an ABN or legal name
// are skipped; duplicate ABNs keep the last row.
func ParseRegistryCSV(r io.Reader) ([]entity.RegistryRecord, error) {
	rows, err := readCSV(r, requiredRegistryHeaders)
	if err != nil {
		return nil, err
	}

	var (
		records []entity.RegistryRecord
		byABN   = make(map[string]int)
	)
	for _, row := range rows {
		abn := strings.ReplaceAll(row.get("abn"), " ", "")
		legalName := row.get("legal_name")
		if abn == "" || legalName == "" {
			continue
		}

		record := entity.RegistryRecord{
			ABN:          abn,
			LegalName:    legalName,
			TradingNames: splitList(row.get("trading_names")),
			StatusCode:   row.get("status_code"),
			IndustryCode: row.get("industry_code"),
			Address: entity.Address{
				Line1:    row.get("address_line1"),
				Suburb:   row.get("suburb"),
				State:    row.get("state"),
				Postcode: row.get("postcode"),
			},
		}
		if raw := row.get("registered_at"); raw != "" {
			ts, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return nil, CSVValidationError{Message: fmt.Sprintf("invalid registered_at value on row %d", row.num)}
			}
			record.RegisteredAt = &ts
		}

		if idx, dup := byABN[abn]; dup {
			records[idx] = record
			continue
		}
		byABN[abn] = len(records)
		records = append(records, record)
	}
	return records, nil
}

// ParseCrawlCSV reads crawl records. Rows without an id or company name are
// skipped.
func ParseCrawlCSV(r io.Reader) ([]entity.CrawlRecord, error) {
	rows, err := readCSV(r, requiredCrawlHeaders)
	if err != nil {
		return nil, err
	}

	records := make([]entity.CrawlRecord, 0, len(rows))
	for _, row := range rows {
		id := row.get("id")
		name := row.get("company_name")
		if id == "" || name == "" {
			continue
		}
		records = append(records, entity.CrawlRecord{
			ID:          id,
			URL:         row.get("url"),
			CompanyName: name,
			Industry:    row.get("industry"),
			Title:       row.get("title"),
			Content:     row.get("content"),
			Emails:      splitList(row.get("emails")),
			Phones:      splitList(row.get("phones")),
		})
	}
	return records, nil
}

type csvRow struct {
	num    int
	cells  []string
	header map[string]int
}

func (r csvRow) get(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func readCSV(r io.Reader, required []string) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, CSVValidationError{Message: "csv file is empty"}
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index, err := buildHeaderIndex(header, required)
	if err != nil {
		return nil, err
	}

	var (
		rows   []csvRow
		rowNum = 1
	)
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rowNum++
		rows = append(rows, csvRow{num: rowNum, cells: cells, header: index})
	}
	return rows, nil
}

func buildHeaderIndex(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}

	missing := make([]string, 0)
	for _, column := range required {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
