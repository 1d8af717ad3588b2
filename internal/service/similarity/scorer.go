package similarity

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

// LocationPlaceholder is the neutral location sub-score. Crawl records carry no
// reliable location data yet, so every pair receives the same value.
const LocationPlaceholder = 0.5

const weightTolerance = 1e-6

// Weights sets the contribution of each sub-score to the composite.
type Weights struct {
	Name     float64
	Semantic float64
	Location float64
	Industry float64
}

// DefaultWeights returns the tuned production weights.
func DefaultWeights() Weights {
	return Weights{Name: 0.50, Semantic: 0.20, Location: 0.15, Industry: 0.15}
}

// Validate requires non-negative weights that sum to 1.0.
func (w Weights) Validate() error {
	for label, value := range map[string]float64{
		"name":     w.Name,
		"semantic": w.Semantic,
		"location": w.Location,
		"industry": w.Industry,
	} {
		if math.IsNaN(value) || value < 0 || value > 1 {
			return fmt.Errorf("%s weight must be within [0,1], got %v", label, value)
		}
	}
	if sum := w.Name + w.Semantic + w.Location + w.Industry; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("similarity weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Composite returns the weighted sum of the breakdown, clamped to [0,1].
func (w Weights) Composite(b entity.Breakdown) float64 {
	return clamp01(b.Name*w.Name + b.Semantic*w.Semantic + b.Location*w.Location + b.Industry*w.Industry)
}

// Scorer computes the multi-factor similarity between a crawl record and a
// registry record.
type Scorer struct {
	weights    Weights
	embedder   Embedder
	industries *IndustryMatcher
}

// NewScorer validates the weights. A nil embedder disables the semantic factor.
func NewScorer(weights Weights, embedder Embedder) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{
		weights:    weights,
		embedder:   embedder,
		industries: NewIndustryMatcher(),
	}, nil
}

// Weights exposes the configured weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Industries exposes the category matcher shared with other components.
func (s *Scorer) Industries() *IndustryMatcher {
	return s.industries
}

// Score never fails: degraded input and backend errors lower the score.
func (s *Scorer) Score(ctx context.Context, crawl entity.CrawlRecord, registry entity.RegistryRecord) entity.MatchCandidate {
	breakdown := entity.Breakdown{
		Name:     clamp01(NameSimilarity(crawl.CompanyName, registry.Names())),
		Semantic: clamp01(s.semantic(ctx, crawl, registry)),
		Location: LocationPlaceholder,
		Industry: s.industries.Similarity(crawl.Industry, registry.IndustryCode),
	}
	return entity.MatchCandidate{
		Crawl:     crawl,
		Registry:  registry,
		Breakdown: breakdown,
		Composite: s.weights.Composite(breakdown),
	}
}

func (s *Scorer) semantic(ctx context.Context, crawl entity.CrawlRecord, registry entity.RegistryRecord) float64 {
	if s.embedder == nil {
		return 0
	}
	crawlText := crawl.Text()
	registryText := s.registryText(registry)
	if strings.TrimSpace(crawlText) == "" || strings.TrimSpace(registryText) == "" {
		return 0
	}

	left, err := s.embedder.Embed(ctx, crawlText)
	if err != nil {
		log.Printf("component=similarity crawl_id=%s semantic=disabled error=%q", crawl.ID, err.Error())
		return 0
	}
	right, err := s.embedder.Embed(ctx, registryText)
	if err != nil {
		log.Printf("component=similarity abn=%s semantic=disabled error=%q", registry.ABN, err.Error())
		return 0
	}
	return math.Max(0, Cosine(left, right))
}

func (s *Scorer) registryText(registry entity.RegistryRecord) string {
	parts := registry.Names()
	if category := s.industries.CategorizeCode(registry.IndustryCode); category != "" {
		parts = append(parts, strings.ReplaceAll(category, "_", " "))
	}
	return strings.Join(parts, " ")
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
