package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/repository"
)

type stubReviewersRepo struct {
	findByEmail func(ctx context.Context, email string) (*entity.Reviewer, error)
	create      func(ctx context.Context, email, passwordHash, role string) (*entity.Reviewer, error)
	list        func(ctx context.Context) ([]entity.Reviewer, error)
}

func (s *stubReviewersRepo) FindByEmail(ctx context.Context, email string) (*entity.Reviewer, error) {
	if s.findByEmail != nil {
		return s.findByEmail(ctx, email)
	}
	return nil, errors.New("not implemented")
}

func (s *stubReviewersRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reviewer, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReviewersRepo) Create(ctx context.Context, email, passwordHash, role string) (*entity.Reviewer, error) {
	if s.create != nil {
		return s.create(ctx, email, passwordHash, role)
	}
	return nil, errors.New("not implemented")
}

func (s *stubReviewersRepo) List(ctx context.Context) ([]entity.Reviewer, error) {
	if s.list != nil {
		return s.list(ctx)
	}
	return nil, errors.New("not implemented")
}

type stubRegistryRepo struct {
	records    []entity.RegistryRecord
	loadErr    error
	upserted   []entity.RegistryRecord
	upsertErr  error
	lastFilter repository.RegistryFilter
}

func (s *stubRegistryRepo) LoadRegistry(ctx context.Context) ([]entity.RegistryRecord, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append(append([]entity.RegistryRecord(nil), s.records...), s.upserted...), nil
}

func (s *stubRegistryRepo) List(ctx context.Context, filter repository.RegistryFilter) ([]entity.RegistryRecord, error) {
	s.lastFilter = filter
	return s.records, nil
}

func (s *stubRegistryRepo) BulkUpsert(ctx context.Context, records []entity.RegistryRecord) (repository.BulkUpsertResult, error) {
	if s.upsertErr != nil {
		return repository.BulkUpsertResult{}, s.upsertErr
	}
	s.upserted = append(s.upserted, records...)
	return repository.BulkUpsertResult{Inserted: len(records), Total: len(records)}, nil
}

type stubBatchResolver struct {
	decide func(crawl entity.CrawlRecord) entity.MatchDecision
	err    error
	calls  int
}

func (s *stubBatchResolver) ResolveAll(ctx context.Context, crawls []entity.CrawlRecord, registry []entity.RegistryRecord) ([]entity.MatchDecision, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]entity.MatchDecision, len(crawls))
	for i, crawl := range crawls {
		out[i] = s.decide(crawl)
	}
	return out, nil
}

func multipartRequest(t *testing.T, target, field, filename, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}
