package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

var (
	// ErrNotFound is returned for unknown review ids.
	ErrNotFound = errors.New("review item not found")
	// ErrInvalidStateTransition is returned when the item's status does not
	// allow the requested operation.
	ErrInvalidStateTransition = errors.New("invalid review state transition")
	// ErrNotClaimant is returned when an in-progress item is resolved by a
	// reviewer other than the one who claimed it.
	ErrNotClaimant = errors.New("review item claimed by another reviewer")
	// ErrReviewerRequired is returned when the reviewer identity is blank.
	ErrReviewerRequired = errors.New("reviewer is required")
	// ErrQueueEmpty is returned by ClaimNext when nothing is pending.
	ErrQueueEmpty = errors.New("no pending review items")
)

type queued struct {
	item entity.ReviewItem
	seq  uint64
}

// Workflow is the manual review queue. All mutation happens under one mutex;
// resolved items move to an archive. Lifecycle events reach the sink in the
// order the mutations happened.
type Workflow struct {
	mu      sync.Mutex
	pubMu   sync.Mutex
	open    map[uuid.UUID]*queued
	archive map[uuid.UUID]entity.ReviewItem
	seq     uint64

	policy    PriorityPolicy
	estimator ValueEstimator
	sink      EventSink
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Workflow)

// WithPolicy overrides the priority policy.
func WithPolicy(policy PriorityPolicy) Option {
	return func(w *Workflow) {
		if policy != nil {
			w.policy = policy
		}
	}
}

// WithEstimator overrides the business value estimator.
func WithEstimator(estimator ValueEstimator) Option {
	return func(w *Workflow) {
		if estimator != nil {
			w.estimator = estimator
		}
	}
}

// WithSink sets the lifecycle event sink.
func WithSink(sink EventSink) Option {
	return func(w *Workflow) {
		w.sink = sink
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWorkflow builds an empty queue using the threshold policy and a zero
// value estimator unless overridden.
func NewWorkflow(opts ...Option) *Workflow {
	w := &Workflow{
		open:      make(map[uuid.UUID]*queued),
		archive:   make(map[uuid.UUID]entity.ReviewItem),
		policy:    ThresholdPolicy(DefaultValueThreshold),
		estimator: ValueFunc(func(entity.MatchCandidate) float64 { return 0 }),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enqueue creates a pending review item for the candidate.
func (w *Workflow) Enqueue(ctx context.Context, candidate entity.MatchCandidate, score float64, reasoning string, factors []string) (uuid.UUID, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return uuid.Nil, fmt.Errorf("review score must be within [0,1], got %v", score)
	}
	value := w.estimator.Estimate(candidate)

	item := entity.ReviewItem{
		ID:             uuid.New(),
		Candidate:      candidate,
		Score:          score,
		Reasoning:      reasoning,
		Factors:        append([]string(nil), factors...),
		Priority:       w.policy(score, value),
		EstimatedValue: value,
		Status:         entity.ReviewPending,
	}

	w.mu.Lock()
	item.CreatedAt = w.now()
	w.insertLocked(item)
	w.unlockAndPublish(ctx, entity.ReviewEventCreated, item)
	return item.ID, nil
}

// Restore loads open items, for example after a restart. Terminal items go
// straight to the archive.
func (w *Workflow) Restore(items []entity.ReviewItem) {
	sorted := append([]entity.ReviewItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, item := range sorted {
		if _, exists := w.open[item.ID]; exists {
			continue
		}
		if _, exists := w.archive[item.ID]; exists {
			continue
		}
		if item.Status.Terminal() {
			w.archive[item.ID] = item
			continue
		}
		w.insertLocked(item)
	}
}

func (w *Workflow) insertLocked(item entity.ReviewItem) {
	w.seq++
	w.open[item.ID] = &queued{item: item, seq: w.seq}
}

// Claim assigns a pending item to the reviewer. Only one reviewer can claim an
// item.
func (w *Workflow) Claim(ctx context.Context, id uuid.UUID, reviewer string) (entity.ReviewItem, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return entity.ReviewItem{}, ErrReviewerRequired
	}

	w.mu.Lock()
	entry, err := w.lookupOpenLocked(id)
	if err != nil {
		w.mu.Unlock()
		return entity.ReviewItem{}, err
	}
	if entry.item.Status != entity.ReviewPending {
		w.mu.Unlock()
		return entity.ReviewItem{}, fmt.Errorf("%w: cannot claim item in status %s", ErrInvalidStateTransition, entry.item.Status)
	}
	w.claimLocked(entry, reviewer)
	item := entry.item
	w.unlockAndPublish(ctx, entity.ReviewEventClaimed, item)
	return item, nil
}

// ClaimNext claims the highest priority pending item, oldest first within a
// priority.
func (w *Workflow) ClaimNext(ctx context.Context, reviewer string) (entity.ReviewItem, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return entity.ReviewItem{}, ErrReviewerRequired
	}

	w.mu.Lock()
	var next *queued
	for _, entry := range w.open {
		if entry.item.Status != entity.ReviewPending {
			continue
		}
		if next == nil || before(entry, next) {
			next = entry
		}
	}
	if next == nil {
		w.mu.Unlock()
		return entity.ReviewItem{}, ErrQueueEmpty
	}
	w.claimLocked(next, reviewer)
	item := next.item
	w.unlockAndPublish(ctx, entity.ReviewEventClaimed, item)
	return item, nil
}

func (w *Workflow) claimLocked(entry *queued, reviewer string) {
	now := w.now()
	entry.item.Status = entity.ReviewInProgress
	entry.item.ClaimedBy = &reviewer
	entry.item.ClaimedAt = &now
}

// Resolve records the reviewer's decision. Pending items may be resolved
// directly; in-progress items only by their claimant.
func (w *Workflow) Resolve(ctx context.Context, id uuid.UUID, approve bool, resolver, notes string) (entity.ReviewItem, error) {
	resolver = strings.TrimSpace(resolver)
	if resolver == "" {
		return entity.ReviewItem{}, ErrReviewerRequired
	}

	w.mu.Lock()
	entry, err := w.lookupOpenLocked(id)
	if err != nil {
		w.mu.Unlock()
		return entity.ReviewItem{}, err
	}
	switch entry.item.Status {
	case entity.ReviewPending:
		w.claimLocked(entry, resolver)
	case entity.ReviewInProgress:
		if entry.item.ClaimedBy == nil || *entry.item.ClaimedBy != resolver {
			w.mu.Unlock()
			return entity.ReviewItem{}, ErrNotClaimant
		}
	default:
		w.mu.Unlock()
		return entity.ReviewItem{}, fmt.Errorf("%w: cannot resolve item in status %s", ErrInvalidStateTransition, entry.item.Status)
	}

	now := w.now()
	entry.item.Status = entity.ReviewRejected
	if approve {
		entry.item.Status = entity.ReviewApproved
	}
	entry.item.ResolvedBy = &resolver
	entry.item.ResolvedAt = &now
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		entry.item.Notes = &trimmed
	}
	item := entry.item
	delete(w.open, id)
	w.archive[id] = item
	w.unlockAndPublish(ctx, entity.ReviewEventResolved, item)
	return item, nil
}

func (w *Workflow) lookupOpenLocked(id uuid.UUID) (*queued, error) {
	if entry, ok := w.open[id]; ok {
		return entry, nil
	}
	if archived, ok := w.archive[id]; ok {
		return nil, fmt.Errorf("%w: item already %s", ErrInvalidStateTransition, archived.Status)
	}
	return nil, ErrNotFound
}

// Get returns a copy of the item, open or archived.
func (w *Workflow) Get(id uuid.UUID) (entity.ReviewItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if entry, ok := w.open[id]; ok {
		return entry.item, nil
	}
	if item, ok := w.archive[id]; ok {
		return item, nil
	}
	return entity.ReviewItem{}, ErrNotFound
}

// Pending lists unclaimed items ordered by priority then age. An empty
// priority matches all tiers; limit <= 0 means no limit.
func (w *Workflow) Pending(priority entity.Priority, limit int) []entity.ReviewItem {
	w.mu.Lock()
	entries := make([]*queued, 0, len(w.open))
	for _, entry := range w.open {
		if entry.item.Status != entity.ReviewPending {
			continue
		}
		if priority != "" && entry.item.Priority != priority {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return before(entries[i], entries[j]) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	items := make([]entity.ReviewItem, len(entries))
	for i, entry := range entries {
		items[i] = entry.item
	}
	w.mu.Unlock()
	return items
}

func before(a, b *queued) bool {
	if ra, rb := a.item.Priority.Rank(), b.item.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
		return a.item.CreatedAt.Before(b.item.CreatedAt)
	}
	return a.seq < b.seq
}

// unlockAndPublish hands the queue lock over to the publish lock so events
// leave in mutation order without holding the queue lock during sink I/O.
// Must be called with w.mu held.
func (w *Workflow) unlockAndPublish(ctx context.Context, eventType entity.ReviewEventType, item entity.ReviewItem) {
	w.pubMu.Lock()
	w.mu.Unlock()
	defer w.pubMu.Unlock()
	w.publish(ctx, eventType, item)
}

func (w *Workflow) publish(ctx context.Context, eventType entity.ReviewEventType, item entity.ReviewItem) {
	if w.sink == nil {
		return
	}
	event := entity.ReviewEvent{Type: eventType, Item: item, At: w.now()}
	if err := w.sink.Publish(ctx, event); err != nil {
		log.Printf("component=review event=%s review_id=%s publish_error=%q", eventType, item.ID, err.Error())
	}
}
