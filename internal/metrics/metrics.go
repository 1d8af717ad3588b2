// Package metrics exports Prometheus instrumentation for the resolver.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octobees/leads-generator/resolver/internal/entity"
	"github.com/octobees/leads-generator/resolver/internal/service/adjudication"
)

const namespace = "resolver"

// Metrics holds the resolver collectors. It satisfies the observer interfaces
// of the resolution and adjudication packages and the review event sink.
type Metrics struct {
	registry *prometheus.Registry

	Decisions          *prometheus.CounterVec
	DecisionDuration   prometheus.Histogram
	CompositeScore     prometheus.Histogram
	AdjudicationCalls  *prometheus.CounterVec
	AdjudicationTime   prometheus.Histogram
	ReviewEvents       *prometheus.CounterVec
	ReviewsOutstanding prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers every collector on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Resolution decisions by outcome and method",
		}, []string{"outcome", "method"}),
		DecisionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Time to resolve a single crawl record",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		CompositeScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "composite_score",
			Help:      "Composite similarity of the best candidate",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		}),
		AdjudicationCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adjudication_calls_total",
			Help:      "Reasoning calls by verdict",
		}, []string{"verdict"}),
		AdjudicationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adjudication_call_duration_seconds",
			Help:      "Latency of a single reasoning call",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		ReviewEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_events_total",
			Help:      "Review queue lifecycle events by type and priority",
		}, []string{"type", "priority"}),
		ReviewsOutstanding: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reviews_outstanding",
			Help:      "Review items created and not yet resolved",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDecision records one resolution decision.
func (m *Metrics) ObserveDecision(decision entity.MatchDecision, elapsed time.Duration) {
	m.Decisions.WithLabelValues(string(decision.Outcome), decision.Method).Inc()
	m.DecisionDuration.Observe(elapsed.Seconds())
	if decision.Candidate != nil {
		m.CompositeScore.Observe(decision.Composite)
	}
}

// ObserveCall records one reasoning call.
func (m *Metrics) ObserveCall(kind adjudication.Kind, elapsed time.Duration) {
	m.AdjudicationCalls.WithLabelValues(string(kind)).Inc()
	m.AdjudicationTime.Observe(elapsed.Seconds())
}

// Publish counts review events. It never fails.
func (m *Metrics) Publish(_ context.Context, event entity.ReviewEvent) error {
	m.ReviewEvents.WithLabelValues(string(event.Type), string(event.Item.Priority)).Inc()
	switch event.Type {
	case entity.ReviewEventCreated:
		m.ReviewsOutstanding.Inc()
	case entity.ReviewEventResolved:
		m.ReviewsOutstanding.Dec()
	}
	return nil
}
