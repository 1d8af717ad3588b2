package resolution

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/service/adjudication"
	"github.com/octobees/leads-generator/resolver/internal/service/candidates"
	"github.com/octobees/leads-generator/resolver/internal/service/routing"
)

// DefaultWorkers bounds the number of crawl records resolved at once.
const DefaultWorkers = 8

// Shortlister narrows the registry to plausible candidates.
type Shortlister interface {
	Shortlist(crawl entity.CrawlRecord, registry []entity.RegistryRecord) []candidates.Ranked
}

// Scorer computes the similarity of one candidate pair.
type Scorer interface {
	Score(ctx context.Context, crawl entity.CrawlRecord, registry entity.RegistryRecord) entity.MatchCandidate
}

// Adjudicator decides ambiguous candidates with an external service.
type Adjudicator interface {
	Adjudicate(ctx context.Context, crawl entity.CrawlRecord, candidates []entity.MatchCandidate) adjudication.Result
}

// ReviewQueue accepts items for human review.
type ReviewQueue interface {
	Enqueue(ctx context.Context, candidate entity.MatchCandidate, score float64, reasoning string, factors []string) (uuid.UUID, error)
}

// DecisionSink persists or forwards decisions.
type DecisionSink interface {
	SaveDecision(ctx context.Context, decision entity.MatchDecision) error
}

// Observer is notified once per decision.
type Observer interface {
	ObserveDecision(decision entity.MatchDecision, elapsed time.Duration)
}

// Resolver drives crawl records through filter, score, route and the
// adjudication or review steps, producing exactly one decision per record.
type Resolver struct {
	filter      Shortlister
	scorer      Scorer
	router      *routing.Router
	adjudicator Adjudicator
	reviews     ReviewQueue
	sink        DecisionSink
	observer    Observer
	workers     int
	now         func() time.Time
}

// Deps groups the collaborators of a Resolver. Adjudicator, Sink and
// Observer are optional; without an adjudicator ambiguous candidates go
// straight to review.
type Deps struct {
	Filter      Shortlister
	Scorer      Scorer
	Router      *routing.Router
	Adjudicator Adjudicator
	Reviews     ReviewQueue
	Sink        DecisionSink
	Observer    Observer
	Workers     int
}

// New validates the required collaborators.
func New(deps Deps) (*Resolver, error) {
	switch {
	case deps.Filter == nil:
		return nil, errors.New("candidate filter is required")
	case deps.Scorer == nil:
		return nil, errors.New("similarity scorer is required")
	case deps.Router == nil:
		return nil, errors.New("router is required")
	case deps.Reviews == nil:
		return nil, errors.New("review queue is required")
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Resolver{
		filter:      deps.Filter,
		scorer:      deps.Scorer,
		router:      deps.Router,
		adjudicator: deps.Adjudicator,
		reviews:     deps.Reviews,
		sink:        deps.Sink,
		observer:    deps.Observer,
		workers:     workers,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// ResolveAll resolves records concurrently. Decisions are returned in input
// order.
func (r *Resolver) ResolveAll(ctx context.Context, crawls []entity.CrawlRecord, registry []entity.RegistryRecord) ([]entity.MatchDecision, error) {
	decisions := make([]entity.MatchDecision, len(crawls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range crawls {
		i := i
		g.Go(func() error {
			decisions[i] = r.Resolve(gctx, crawls[i], registry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return decisions, err
	}
	return decisions, ctx.Err()
}

// Resolve produces the decision for one crawl record.
func (r *Resolver) Resolve(ctx context.Context, crawl entity.CrawlRecord, registry []entity.RegistryRecord) entity.MatchDecision {
	start := time.Now()
	decision := r.resolve(ctx, crawl, registry)
	decision.CrawlID = crawl.ID
	decision.DecidedAt = r.now()
	elapsed := time.Since(start)

	log.Printf("component=resolution crawl_id=%s outcome=%s method=%s composite=%.3f adjudication_calls=%d duration_ms=%d",
		crawl.ID, decision.Outcome, decision.Method, decision.Composite, decision.AdjudicationCalls, elapsed.Milliseconds())

	if r.sink != nil {
		if err := r.sink.SaveDecision(ctx, decision); err != nil {
			log.Printf("component=resolution crawl_id=%s sink_error=%q", crawl.ID, err.Error())
		}
	}
	if r.observer != nil {
		r.observer.ObserveDecision(decision, elapsed)
	}
	return decision
}

func (r *Resolver) resolve(ctx context.Context, crawl entity.CrawlRecord, registry []entity.RegistryRecord) entity.MatchDecision {
	shortlist := r.filter.Shortlist(crawl, registry)
	if len(shortlist) == 0 {
		return entity.MatchDecision{Outcome: entity.OutcomeRejected, Method: entity.MethodNoCandidates}
	}

	scored := make([]entity.MatchCandidate, 0, len(shortlist))
	for _, ranked := range shortlist {
		scored = append(scored, r.scorer.Score(ctx, crawl, ranked.Record))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Composite != scored[j].Composite {
			return scored[i].Composite > scored[j].Composite
		}
		return scored[i].Registry.ABN < scored[j].Registry.ABN
	})

	best := scored[0]
	route := r.router.Route(best.Composite)
	switch route.Action {
	case routing.ActionReject:
		return entity.MatchDecision{
			Outcome:   entity.OutcomeRejected,
			Method:    entity.MethodBelowThreshold,
			Composite: best.Composite,
			Candidate: &best,
		}
	case routing.ActionManualReview:
		return r.queue(ctx, best, "", nil, 0)
	case routing.ActionAutoAccept:
		if !best.Registry.Active() {
			return r.queue(ctx, best, "registry record is not active; automatic acceptance withheld", nil, 0)
		}
		method := entity.MethodAuto
		if route.Exact {
			method = entity.MethodExact
		}
		return entity.MatchDecision{
			Outcome:   entity.OutcomeAccepted,
			Method:    method,
			Composite: best.Composite,
			Exact:     route.Exact,
			Candidate: &best,
		}
	default:
		return r.adjudicate(ctx, crawl, scored)
	}
}

func (r *Resolver) adjudicate(ctx context.Context, crawl entity.CrawlRecord, scored []entity.MatchCandidate) entity.MatchDecision {
	if r.adjudicator == nil {
		return r.queue(ctx, scored[0], "adjudication disabled", nil, 0)
	}

	routed := make([]entity.MatchCandidate, 0, len(scored))
	for _, candidate := range scored {
		if r.router.Route(candidate.Composite).Action == routing.ActionAdjudicate {
			routed = append(routed, candidate)
		}
	}

	result := r.adjudicator.Adjudicate(ctx, crawl, routed)
	if result.Confirmed() {
		confirmed := *result.Candidate
		confidence := result.Verdict.Confidence
		return entity.MatchDecision{
			Outcome:           entity.OutcomeAccepted,
			Method:            entity.MethodAdjudicated,
			Composite:         confirmed.Composite,
			Reasoning:         result.Verdict.Reasoning,
			Factors:           result.Verdict.Factors,
			Confidence:        &confidence,
			ReviewRecommended: confidence < r.router.Thresholds().AutoAccept,
			Candidate:         &confirmed,
			AdjudicationCalls: result.Calls,
		}
	}

	top := routed[0]
	if result.Candidate != nil {
		top = *result.Candidate
	}
	if ctx.Err() != nil {
		return entity.MatchDecision{
			Outcome:           entity.OutcomeAdjudicationPending,
			Method:            entity.MethodAdjudicated,
			Composite:         top.Composite,
			Reasoning:         result.Reasoning(),
			Candidate:         &top,
			AdjudicationCalls: result.Calls,
		}
	}
	return r.queue(ctx, top, result.Reasoning(), result.Verdict.Factors, result.Calls)
}

func (r *Resolver) queue(ctx context.Context, candidate entity.MatchCandidate, reasoning string, factors []string, calls int) entity.MatchDecision {
	decision := entity.MatchDecision{
		Outcome:           entity.OutcomeQueuedForReview,
		Method:            entity.MethodManualReview,
		Composite:         candidate.Composite,
		Reasoning:         reasoning,
		Factors:           factors,
		Candidate:         &candidate,
		AdjudicationCalls: calls,
	}
	id, err := r.reviews.Enqueue(ctx, candidate, clamp01(candidate.Composite), reasoning, factors)
	if err != nil {
		log.Printf("component=resolution crawl_id=%s abn=%s enqueue_error=%q", candidate.Crawl.ID, candidate.Registry.ABN, err.Error())
		decision.Outcome = entity.OutcomeAdjudicationPending
		return decision
	}
	decision.ReviewID = &id
	return decision
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
