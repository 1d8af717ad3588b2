package entity

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders review items for human reviewers.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort position of the priority, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// ReviewStatus is the lifecycle state of a review item.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewApproved   ReviewStatus = "approved"
	ReviewRejected   ReviewStatus = "rejected"
)

// Terminal reports whether the status is approved or rejected.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewApproved || s == ReviewRejected
}

// ReviewItem is a candidate match waiting for a human decision.
type ReviewItem struct {
	ID             uuid.UUID      `json:"id"`
	Candidate      MatchCandidate `json:"candidate"`
	Score          float64        `json:"score"`
	Reasoning      string         `json:"reasoning,omitempty"`
	Factors        []string       `json:"factors,omitempty"`
	Priority       Priority       `json:"priority"`
	EstimatedValue float64        `json:"estimated_value"`
	Status         ReviewStatus   `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	ClaimedBy      *string        `json:"claimed_by,omitempty"`
	ClaimedAt      *time.Time     `json:"claimed_at,omitempty"`
	ResolvedBy     *string        `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
}

// ReviewEventType names a lifecycle transition published by the review queue.
type ReviewEventType string

const (
	ReviewEventCreated  ReviewEventType = "created"
	ReviewEventClaimed  ReviewEventType = "claimed"
	ReviewEventResolved ReviewEventType = "resolved"
)

// ReviewEvent is emitted to external display and audit collaborators.
type ReviewEvent struct {
	Type ReviewEventType `json:"type"`
	Item ReviewItem      `json:"item"`
	At   time.Time       `json:"at"`
}
