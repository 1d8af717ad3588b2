package routing

import (
	"fmt"
	"math"
)

// Action is the next step for a scored candidate.
type Action string

const (
	ActionReject       Action = "reject"
	ActionManualReview Action = "manual_review"
	ActionAdjudicate   Action = "adjudicate"
	ActionAutoAccept   Action = "auto_accept"
)

// Thresholds are the inclusive lower bounds of each tier.
type Thresholds struct {
	ManualReview float64
	Adjudicate   float64
	AutoAccept   float64
	Exact        float64
}

// DefaultThresholds favour precision over recall.
func DefaultThresholds() Thresholds {
	return Thresholds{ManualReview: 0.40, Adjudicate: 0.60, AutoAccept: 0.85, Exact: 0.95}
}

// Validate requires 0 < manual review < adjudicate < auto accept < exact <= 1.
func (t Thresholds) Validate() error {
	values := []float64{t.ManualReview, t.Adjudicate, t.AutoAccept, t.Exact}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("routing thresholds must be finite, got %+v", t)
		}
	}
	if t.ManualReview <= 0 {
		return fmt.Errorf("manual review threshold must be positive, got %v", t.ManualReview)
	}
	if !(t.ManualReview < t.Adjudicate && t.Adjudicate < t.AutoAccept && t.AutoAccept < t.Exact) {
		return fmt.Errorf("routing thresholds must be strictly increasing, got manual_review=%v adjudicate=%v auto_accept=%v exact=%v",
			t.ManualReview, t.Adjudicate, t.AutoAccept, t.Exact)
	}
	if t.Exact > 1 {
		return fmt.Errorf("exact threshold must not exceed 1, got %v", t.Exact)
	}
	return nil
}

// Route is a routing outcome. Exact marks the no-further-checks sub-tier of
// auto accept.
type Route struct {
	Action Action
	Exact  bool
}

// Router maps composite scores onto actions.
type Router struct {
	thresholds Thresholds
}

// NewRouter rejects invalid thresholds.
func NewRouter(t Thresholds) (*Router, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Router{thresholds: t}, nil
}

// Thresholds returns the configured bounds.
func (r *Router) Thresholds() Thresholds {
	return r.thresholds
}

// Route is total: NaN and negative scores reject, scores above 1 auto accept.
func (r *Router) Route(score float64) Route {
	t := r.thresholds
	switch {
	case math.IsNaN(score) || score < t.ManualReview:
		return Route{Action: ActionReject}
	case score < t.Adjudicate:
		return Route{Action: ActionManualReview}
	case score < t.AutoAccept:
		return Route{Action: ActionAdjudicate}
	default:
		return Route{Action: ActionAutoAccept, Exact: score >= t.Exact}
	}
}
