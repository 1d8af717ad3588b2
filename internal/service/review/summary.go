package review

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// Summary aggregates the queue state.
type Summary struct {
	Pending           int                     `json:"pending"`
	InProgress        int                     `json:"in_progress"`
	Completed         int                     `json:"completed"`
	Approved          int                     `json:"approved"`
	Rejected          int                     `json:"rejected"`
	ApprovalRate      float64                 `json:"approval_rate"`
	PendingByPriority map[entity.Priority]int `json:"pending_by_priority"`
	OutstandingValue  float64                 `json:"outstanding_value"`
	CompletedValue    float64                 `json:"completed_value"`
	AvgPendingScore   float64                 `json:"avg_pending_score"`
	AvgCompletedScore float64                 `json:"avg_completed_score"`
}

// Summary counts items by status and priority. Outstanding value covers
// pending and in-progress items.
func (w *Workflow) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Summary{PendingByPriority: map[entity.Priority]int{
		entity.PriorityHigh:   0,
		entity.PriorityMedium: 0,
		entity.PriorityLow:    0,
	}}
	var pendingScore, completedScore float64
	for _, entry := range w.open {
		item := entry.item
		s.OutstandingValue += item.EstimatedValue
		if item.Status == entity.ReviewInProgress {
			s.InProgress++
			continue
		}
		s.Pending++
		s.PendingByPriority[item.Priority]++
		pendingScore += item.Score
	}
	for _, item := range w.archive {
		s.Completed++
		s.CompletedValue += item.EstimatedValue
		completedScore += item.Score
		if item.Status == entity.ReviewApproved {
			s.Approved++
		} else {
			s.Rejected++
		}
	}
	if s.Completed > 0 {
		s.ApprovalRate = float64(s.Approved) / float64(s.Completed)
		s.AvgCompletedScore = round3(completedScore / float64(s.Completed))
	}
	if s.Pending > 0 {
		s.AvgPendingScore = round3(pendingScore / float64(s.Pending))
	}
	return s
}

// ReportEntry is one row of the review report.
type ReportEntry struct {
	ID              uuid.UUID           `json:"id"`
	Status          entity.ReviewStatus `json:"status"`
	Priority        entity.Priority     `json:"priority"`
	Score           float64             `json:"score"`
	EstimatedValue  float64             `json:"estimated_value"`
	CrawlCompany    string              `json:"crawl_company"`
	RegistryCompany string              `json:"registry_company"`
	ABN             string              `json:"abn"`
	Reasoning       string              `json:"reasoning,omitempty"`
	Factors         []string            `json:"factors,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	ClaimedBy       *string             `json:"claimed_by,omitempty"`
	ResolvedBy      *string             `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
}

// Report is an export of the queue for offline analysis.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     Summary       `json:"summary"`
	Open        []ReportEntry `json:"open"`
	Completed   []ReportEntry `json:"completed,omitempty"`
}

// Report lists open items by priority and age, and optionally the archive by
// resolution time.
func (w *Workflow) Report(includeCompleted bool) Report {
	summary := w.Summary()

	w.mu.Lock()
	open := make([]*queued, 0, len(w.open))
	for _, entry := range w.open {
		open = append(open, entry)
	}
	var archived []entity.ReviewItem
	if includeCompleted {
		archived = make([]entity.ReviewItem, 0, len(w.archive))
		for _, item := range w.archive {
			archived = append(archived, item)
		}
	}
	generatedAt := w.now()
	w.mu.Unlock()

	sort.Slice(open, func(i, j int) bool { return before(open[i], open[j]) })
	report := Report{GeneratedAt: generatedAt, Summary: summary, Open: make([]ReportEntry, 0, len(open))}
	for _, entry := range open {
		report.Open = append(report.Open, toEntry(entry.item))
	}

	if includeCompleted {
		sort.Slice(archived, func(i, j int) bool {
			return resolvedAt(archived[i]).Before(resolvedAt(archived[j]))
		})
		report.Completed = make([]ReportEntry, 0, len(archived))
		for _, item := range archived {
			report.Completed = append(report.Completed, toEntry(item))
		}
	}
	return report
}

func toEntry(item entity.ReviewItem) ReportEntry {
	return ReportEntry{
		ID:              item.ID,
		Status:          item.Status,
		Priority:        item.Priority,
		Score:           item.Score,
		EstimatedValue:  item.EstimatedValue,
		CrawlCompany:    item.Candidate.Crawl.CompanyName,
		RegistryCompany: item.Candidate.Registry.LegalName,
		ABN:             item.Candidate.Registry.ABN,
		Reasoning:       item.Reasoning,
		Factors:         item.Factors,
		CreatedAt:       item.CreatedAt,
		ClaimedBy:       item.ClaimedBy,
		ResolvedBy:      item.ResolvedBy,
		ResolvedAt:      item.ResolvedAt,
		Notes:           item.Notes,
	}
}

func resolvedAt(item entity.ReviewItem) time.Time {
	if item.ResolvedAt == nil {
		return time.Time{}
	}
	return *item.ResolvedAt
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
