package adjudication

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

const (
	// MaxCallsLimit is the hard upper bound of reasoning calls per crawl record.
	MaxCallsLimit = 5
	// DefaultCallTimeout bounds a single reasoning call.
	DefaultCallTimeout = 30 * time.Second
)

// Attempt records one reasoning call.
type Attempt struct {
	Candidate entity.MatchCandidate `json:"candidate"`
	Verdict   Verdict               `json:"verdict"`
	Duration  time.Duration         `json:"duration"`
}

// Result summarises the adjudication of one crawl record. Candidate is the
// confirmed candidate, or the top adjudicated one when nothing was confirmed.
type Result struct {
	Verdict   Verdict
	Candidate *entity.MatchCandidate
	Calls     int
	Attempts  []Attempt
}

// Confirmed reports whether any candidate was confirmed.
func (r Result) Confirmed() bool {
	return r.Verdict.Kind == KindConfirmed
}

// Observer receives one notification per finished call.
type Observer interface {
	ObserveCall(kind Kind, elapsed time.Duration)
}

// Config tunes the adjudicator.
type Config struct {
	MaxCalls    int
	CallTimeout time.Duration
}

// Adjudicator asks the reasoning service to decide ambiguous candidates.
type Adjudicator struct {
	reasoner Reasoner
	limiter  *Limiter
	observer Observer
	maxCalls int
	timeout  time.Duration
}

// New wires an adjudicator. The limiter is shared across all crawl records.
func New(reasoner Reasoner, limiter *Limiter, cfg Config, observer Observer) (*Adjudicator, error) {
	if reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if limiter == nil {
		return nil, errors.New("limiter is required")
	}
	if cfg.MaxCalls == 0 {
		cfg.MaxCalls = MaxCallsLimit
	}
	if cfg.MaxCalls < 0 || cfg.MaxCalls > MaxCallsLimit {
		return nil, fmt.Errorf("max adjudication calls must be within 1..%d, got %d", MaxCallsLimit, cfg.MaxCalls)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Adjudicator{
		reasoner: reasoner,
		limiter:  limiter,
		observer: observer,
		maxCalls: cfg.MaxCalls,
		timeout:  cfg.CallTimeout,
	}, nil
}

// Adjudicate walks the candidates best first, one call at a time, and stops at
// the first confirmation or after MaxCalls calls. Failed calls count as no
// decision and the walk continues.
func (a *Adjudicator) Adjudicate(ctx context.Context, crawl entity.CrawlRecord, candidates []entity.MatchCandidate) Result {
	ranked := make([]entity.MatchCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Composite > ranked[j].Composite
	})
	if len(ranked) > a.maxCalls {
		ranked = ranked[:a.maxCalls]
	}

	result := Result{Verdict: NoDecision("no candidates adjudicated")}
	if len(ranked) > 0 {
		top := ranked[0]
		result.Candidate = &top
	}

	for _, candidate := range ranked {
		if err := ctx.Err(); err != nil {
			result.Verdict = NoDecision(err.Error())
			break
		}
		verdict, elapsed, issued := a.call(ctx, crawl, candidate)
		if issued {
			result.Calls++
		}
		result.Attempts = append(result.Attempts, Attempt{Candidate: candidate, Verdict: verdict, Duration: elapsed})
		if verdict.Kind == KindConfirmed {
			confirmed := candidate
			result.Verdict = verdict
			result.Candidate = &confirmed
			return result
		}
	}

	result.Verdict = summarise(result.Attempts, result.Verdict)
	return result
}

func (a *Adjudicator) call(ctx context.Context, crawl entity.CrawlRecord, candidate entity.MatchCandidate) (Verdict, time.Duration, bool) {
	release, err := a.limiter.Acquire(ctx)
	if err != nil {
		log.Printf("component=adjudication crawl_id=%s abn=%s outcome=no_decision error=%q", crawl.ID, candidate.Registry.ABN, err.Error())
		return NoDecision("limiter: " + err.Error()), 0, false
	}
	defer release()

	req := NewRequest(candidate)
	req.RequestID = uuid.NewString()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	raw, err := a.reasoner.Reason(callCtx, req)
	elapsed := time.Since(start)

	var verdict Verdict
	switch {
	case err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		verdict = NoDecision("timeout: " + err.Error())
	case err != nil:
		verdict = NoDecision("transport: " + err.Error())
	default:
		parsed, parseErr := ParseVerdict(raw)
		if parseErr != nil {
			verdict = NoDecision(parseErr.Error())
		} else {
			verdict = parsed
		}
	}

	if verdict.Kind == KindNoDecision {
		log.Printf("component=adjudication request_id=%s crawl_id=%s abn=%s outcome=no_decision duration_ms=%d reason=%q",
			req.RequestID, crawl.ID, candidate.Registry.ABN, elapsed.Milliseconds(), verdict.Reason)
	} else {
		log.Printf("component=adjudication request_id=%s crawl_id=%s abn=%s outcome=%s confidence=%.3f duration_ms=%d",
			req.RequestID, crawl.ID, candidate.Registry.ABN, verdict.Kind, verdict.Confidence, elapsed.Milliseconds())
	}
	if a.observer != nil {
		a.observer.ObserveCall(verdict.Kind, elapsed)
	}
	return verdict, elapsed, true
}

// summarise picks the verdict reported when nothing was confirmed: the first
// denial if any, otherwise the last no-decision.
func summarise(attempts []Attempt, fallback Verdict) Verdict {
	for _, attempt := range attempts {
		if attempt.Verdict.Kind == KindDenied {
			return attempt.Verdict
		}
	}
	if len(attempts) > 0 {
		return attempts[len(attempts)-1].Verdict
	}
	return fallback
}

// Reasoning joins the explanation of every attempt, best candidate first.
func (r Result) Reasoning() string {
	if r.Verdict.Kind == KindConfirmed {
		return r.Verdict.Reasoning
	}
	var out string
	for _, attempt := range r.Attempts {
		text := attempt.Verdict.Reasoning
		if attempt.Verdict.Kind == KindNoDecision {
			text = "no decision: " + attempt.Verdict.Reason
		}
		if out != "" {
			out += " | "
		}
		out += fmt.Sprintf("%s: %s", attempt.Candidate.Registry.ABN, text)
	}
	return out
}
