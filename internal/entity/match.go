package entity

import (
	"time"

	"github.com/google/uuid"
)

// Breakdown carries the four similarity sub-scores of a candidate pair.
type Breakdown struct {
	Name     float64 `json:"name"`
	Semantic float64 `json:"semantic"`
	Location float64 `json:"location"`
	Industry float64 `json:"industry"`
}

// MatchCandidate pairs a crawl record with one shortlisted registry record.
type MatchCandidate struct {
	Crawl     CrawlRecord    `json:"crawl"`
	Registry  RegistryRecord `json:"registry"`
	Breakdown Breakdown      `json:"breakdown"`
	Composite float64        `json:"composite"`
}

// Outcome is the routing result recorded on a MatchDecision.
type Outcome string

const (
	OutcomeAccepted            Outcome = "accepted"
	OutcomeRejected            Outcome = "rejected"
	OutcomeQueuedForReview     Outcome = "queued_for_review"
	OutcomeAdjudicationPending Outcome = "adjudication_pending"
)

// Terminal reports whether no further transition is possible.
func (o Outcome) Terminal() bool {
	return o == OutcomeAccepted || o == OutcomeRejected
}

// Match methods describe how a decision was reached.
const (
	MethodExact          = "exact"
	MethodAuto           = "auto"
	MethodAdjudicated    = "adjudicated"
	MethodManualReview   = "manual_review"
	MethodNoCandidates   = "no_candidates"
	MethodBelowThreshold = "below_threshold"
)

// MatchDecision is the single resolution outcome produced for a crawl record.
type MatchDecision struct {
	CrawlID           string          `json:"crawl_id"`
	Outcome           Outcome         `json:"outcome"`
	Method            string          `json:"method"`
	Composite         float64         `json:"composite"`
	Exact             bool            `json:"exact,omitempty"`
	Reasoning         string          `json:"reasoning,omitempty"`
	Factors           []string        `json:"factors,omitempty"`
	Confidence        *float64        `json:"confidence,omitempty"`
	ReviewRecommended bool            `json:"review_recommended,omitempty"`
	Candidate         *MatchCandidate `json:"candidate,omitempty"`
	ReviewID          *uuid.UUID      `json:"review_id,omitempty"`
	AdjudicationCalls int             `json:"adjudication_calls"`
	DecidedAt         time.Time       `json:"decided_at"`
}
