package dto

import "github.com/octobees/leads-generator/resolver/internal/entity"

// ResolveRequest carries a batch of crawl records to resolve.
type ResolveRequest struct {
	CrawlRecords []entity.CrawlRecord `json:"crawl_records"`
}

// OutcomeCounts tallies decisions by outcome.
type OutcomeCounts struct {
	Total               int `json:"total"`
	Accepted            int `json:"accepted"`
	Rejected            int `json:"rejected"`
	QueuedForReview     int `json:"queued_for_review"`
	AdjudicationPending int `json:"adjudication_pending"`
}

// ResolveResponse returns one decision per crawl record, in input order.
type ResolveResponse struct {
	Decisions []entity.MatchDecision `json:"decisions"`
	Counts    OutcomeCounts          `json:"counts"`
}

// RegistryReloadResponse reports the snapshot size after a reload.
type RegistryReloadResponse struct {
	Records  int    `json:"records"`
	LoadedAt string `json:"loaded_at"`
}
