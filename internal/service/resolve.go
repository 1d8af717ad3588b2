package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/repository"
	"github.com/octobees/leads-generator/resolver/internal/service/resolution"
)

// MaxResolveBatch bounds the number of crawl records accepted per request.
const MaxResolveBatch = 500

var (
	ErrRegistryEmpty  = errors.New("registry snapshot is empty")
	ErrBatchTooLarge  = fmt.Errorf("at most %d crawl records per request", MaxResolveBatch)
	ErrEmptyBatch     = errors.New("no crawl records supplied")
	ErrMissingCrawlID = errors.New("every crawl record needs an id and company name")
	ErrNoHistory      = errors.New("decision history is not configured")
)

// BatchResolver resolves crawl records against a registry.
type BatchResolver interface {
	ResolveAll(ctx context.Context, crawls []entity.CrawlRecord, registry []entity.RegistryRecord) ([]entity.MatchDecision, error)
}

// DecisionHistory reads previously persisted decisions.
type DecisionHistory interface {
	ListByCrawl(ctx context.Context, crawlID string) ([]entity.MatchDecision, error)
}

// ResolveSummary counts decisions by outcome.
type ResolveSummary struct {
	Total               int `json:"total"`
	Accepted            int `json:"accepted"`
	Rejected            int `json:"rejected"`
	QueuedForReview     int `json:"queued_for_review"`
	AdjudicationPending int `json:"adjudication_pending"`
}

// ResolveService runs resolution batches against the registry snapshot.
type ResolveService struct {
	resolver BatchResolver
	registry *resolution.Registry
	history  DecisionHistory
}

// NewResolveService wires the orchestrator with a registry snapshot. History
// may be nil.
func NewResolveService(resolver BatchResolver, registry *resolution.Registry, history DecisionHistory) *ResolveService {
	return &ResolveService{resolver: resolver, registry: registry, history: history}
}

// Resolve validates the batch and resolves every record.
func (s *ResolveService) Resolve(ctx context.Context, crawls []entity.CrawlRecord) ([]entity.MatchDecision, ResolveSummary, error) {
	switch {
	case len(crawls) == 0:
		return nil, ResolveSummary{}, ErrEmptyBatch
	case len(crawls) > MaxResolveBatch:
		return nil, ResolveSummary{}, ErrBatchTooLarge
	}
	for _, crawl := range crawls {
		if crawl.ID == "" || crawl.CompanyName == "" {
			return nil, ResolveSummary{}, ErrMissingCrawlID
		}
	}

	registry := s.registry.Records()
	if len(registry) == 0 {
		return nil, ResolveSummary{}, ErrRegistryEmpty
	}

	decisions, err := s.resolver.ResolveAll(ctx, crawls, registry)
	if err != nil {
		return nil, ResolveSummary{}, fmt.Errorf("resolve batch: %w", err)
	}
	return decisions, Summarise(decisions), nil
}

// ResolveCSV parses a crawl record CSV and resolves it.
func (s *ResolveService) ResolveCSV(ctx context.Context, r io.Reader) ([]entity.MatchDecision, ResolveSummary, error) {
	crawls, err := ParseCrawlCSV(r)
	if err != nil {
		return nil, ResolveSummary{}, err
	}
	return s.Resolve(ctx, crawls)
}

// History returns the stored decisions for a crawl record, newest first.
func (s *ResolveService) History(ctx context.Context, crawlID string) ([]entity.MatchDecision, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	if crawlID == "" {
		return nil, ErrMissingCrawlID
	}
	return s.history.ListByCrawl(ctx, crawlID)
}

// Summarise counts decisions by outcome.
func Summarise(decisions []entity.MatchDecision) ResolveSummary {
	summary := ResolveSummary{Total: len(decisions)}
	for _, d := range decisions {
		switch d.Outcome {
		case entity.OutcomeAccepted:
			summary.Accepted++
		case entity.OutcomeRejected:
			summary.Rejected++
		case entity.OutcomeQueuedForReview:
			summary.QueuedForReview++
		case entity.OutcomeAdjudicationPending:
			summary.AdjudicationPending++
		}
	}
	return summary
}

// RegistryService manages the registry table and the in-memory snapshot.
type RegistryService struct {
	repo     repository.RegistryRepository
	snapshot *resolution.Registry
}

// UploadSummary reports a registry import.
type UploadSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
	Loaded   int `json:"loaded"`
}

// NewRegistryService wires the repository and the snapshot it feeds.
func NewRegistryService(repo repository.RegistryRepository, snapshot *resolution.Registry) *RegistryService {
	return &RegistryService{repo: repo, snapshot: snapshot}
}

// ImportCSV upserts registry rows and refreshes the snapshot.
func (s *RegistryService) ImportCSV(ctx context.Context, r io.Reader) (UploadSummary, error) {
	records, err := ParseRegistryCSV(r)
	if err != nil {
		return UploadSummary{}, err
	}
	if len(records) == 0 {
		return UploadSummary{}, CSVValidationError{Message: "csv contains no registry rows"}
	}

	result, err := s.repo.BulkUpsert(ctx, records)
	if err != nil {
		return UploadSummary{}, err
	}
	summary := UploadSummary{Inserted: result.Inserted, Updated: result.Updated, Total: result.Total}

	loaded, err := s.snapshot.Reload(ctx)
	if err != nil {
		log.Printf("component=registry action=import reload_error=%q", err.Error())
		return summary, fmt.Errorf("reload registry after import: %w", err)
	}
	summary.Loaded = loaded
	return summary, nil
}

// Reload refreshes the snapshot from the repository.
func (s *RegistryService) Reload(ctx context.Context) (int, error) {
	return s.snapshot.Reload(ctx)
}

// List pages through the registry table.
func (s *RegistryService) List(ctx context.Context, filter repository.RegistryFilter) ([]entity.RegistryRecord, error) {
	return s.repo.List(ctx, filter)
}

// LoadedAt reports when the snapshot was last replaced.
func (s *RegistryService) LoadedAt() time.Time {
	return s.snapshot.LoadedAt()
}
