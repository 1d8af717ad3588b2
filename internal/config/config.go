package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/octobees/leads-generator/resolver/internal/service/adjudication"
	"github.com/octobees/leads-generator/resolver/internal/service/candidates"
	"github.com/octobees/leads-generator/resolver/internal/service/resolution"
	"github.com/octobees/leads-generator/resolver/internal/service/review"
	"github.com/octobees/leads-generator/resolver/internal/service/routing"
	"github.com/octobees/leads-generator/resolver/internal/service/similarity"
)

// Reasoner providers.
const (
	ReasonerService   = "service"
	ReasonerAnthropic = "anthropic"
	ReasonerNone      = "none"
)

// Embedding providers.
const (
	EmbeddingLocal  = "local"
	EmbeddingOpenAI = "openai"
	EmbeddingNone   = "none"
)

// ConfigError reports an invalid value for a single key.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s value: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// ReasonerConfig selects and configures the adjudication backend.
type ReasonerConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	MaxCalls    int
	Concurrency int
	RateLimit   *RateLimitConfig
	Timeout     time.Duration
}

// EmbeddingConfig selects the semantic similarity backend.
type EmbeddingConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL          string
	DatabaseMaxConns     int32
	JWTSecret            string
	Port                 string
	TokenTTL             time.Duration
	RateLimitResolve     RateLimitConfig
	Thresholds           routing.Thresholds
	Weights              similarity.Weights
	ShortlistCap         int
	ReviewValueThreshold float64
	ResolveWorkers       int
	Reasoner             ReasonerConfig
	Embedding            EmbeddingConfig
}

// Load reads configuration from environment variables and applies defaults.
// Values that are present but unparseable are errors.
func Load() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	thresholds := routing.DefaultThresholds()
	weights := similarity.DefaultWeights()
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),
		Port:        getEnv("PORT", "8080"),
		Reasoner: ReasonerConfig{
			Provider: strings.ToLower(getEnv("REASONER_PROVIDER", ReasonerService)),
			BaseURL:  getEnv("REASONER_BASE_URL", "http://reasoner:9000"),
			APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
			Model:    getEnv("ANTHROPIC_MODEL", adjudication.DefaultAnthropicModel),
		},
		Embedding: EmbeddingConfig{
			Provider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", EmbeddingLocal)),
			BaseURL:  getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
			APIKey:   os.Getenv("EMBEDDING_API_KEY"),
			Model:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		},
	}

	maxConns, err := intEnv("DATABASE_MAX_CONNS", 0)
	collect(err)
	cfg.DatabaseMaxConns = int32(maxConns)
	cfg.TokenTTL, err = durationEnv("JWT_TTL", 24*time.Hour)
	collect(err)
	cfg.Reasoner.Timeout, err = durationEnv("ADJUDICATION_TIMEOUT", adjudication.DefaultCallTimeout)
	collect(err)

	cfg.Thresholds.ManualReview, err = floatEnv("THRESHOLD_MANUAL_REVIEW", thresholds.ManualReview)
	collect(err)
	cfg.Thresholds.Adjudicate, err = floatEnv("THRESHOLD_ADJUDICATE", thresholds.Adjudicate)
	collect(err)
	cfg.Thresholds.AutoAccept, err = floatEnv("THRESHOLD_AUTO_ACCEPT", thresholds.AutoAccept)
	collect(err)
	cfg.Thresholds.Exact, err = floatEnv("THRESHOLD_EXACT", thresholds.Exact)
	collect(err)

	cfg.Weights.Name, err = floatEnv("WEIGHT_NAME", weights.Name)
	collect(err)
	cfg.Weights.Semantic, err = floatEnv("WEIGHT_SEMANTIC", weights.Semantic)
	collect(err)
	cfg.Weights.Location, err = floatEnv("WEIGHT_LOCATION", weights.Location)
	collect(err)
	cfg.Weights.Industry, err = floatEnv("WEIGHT_INDUSTRY", weights.Industry)
	collect(err)

	cfg.ShortlistCap, err = intEnv("SHORTLIST_CAP", candidates.MaxShortlist)
	collect(err)
	cfg.Reasoner.MaxCalls, err = intEnv("MAX_ADJUDICATION_CALLS", adjudication.MaxCallsLimit)
	collect(err)
	cfg.Reasoner.Concurrency, err = intEnv("ADJUDICATION_CONCURRENCY", adjudication.DefaultConcurrency)
	collect(err)
	cfg.ResolveWorkers, err = intEnv("RESOLVE_WORKERS", resolution.DefaultWorkers)
	collect(err)
	cfg.ReviewValueThreshold, err = floatEnv("REVIEW_VALUE_THRESHOLD", review.DefaultValueThreshold)
	collect(err)

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_RESOLVE", "60/min"))
	if err != nil {
		collect(&ConfigError{Key: "RATE_LIMIT_RESOLVE", Err: err})
	}
	cfg.RateLimitResolve = rl

	if raw := os.Getenv("ADJUDICATION_RATE_LIMIT"); raw != "" {
		pacing, err := parseRateLimit(raw)
		if err != nil {
			collect(&ConfigError{Key: "ADJUDICATION_RATE_LIMIT", Err: err})
		} else {
			cfg.Reasoner.RateLimit = &pacing
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return &ConfigError{Key: "THRESHOLD_*", Err: err}
	}
	if err := c.Weights.Validate(); err != nil {
		return &ConfigError{Key: "WEIGHT_*", Err: err}
	}
	if c.ShortlistCap <= 0 || c.ShortlistCap > candidates.MaxShortlist {
		return &ConfigError{Key: "SHORTLIST_CAP", Err: fmt.Errorf("must be within 1..%d, got %d", candidates.MaxShortlist, c.ShortlistCap)}
	}
	if c.Reasoner.MaxCalls <= 0 || c.Reasoner.MaxCalls > adjudication.MaxCallsLimit {
		return &ConfigError{Key: "MAX_ADJUDICATION_CALLS", Err: fmt.Errorf("must be within 1..%d, got %d", adjudication.MaxCallsLimit, c.Reasoner.MaxCalls)}
	}
	if c.Reasoner.Concurrency <= 0 {
		return &ConfigError{Key: "ADJUDICATION_CONCURRENCY", Err: fmt.Errorf("must be positive, got %d", c.Reasoner.Concurrency)}
	}
	if c.Reasoner.Timeout <= 0 {
		return &ConfigError{Key: "ADJUDICATION_TIMEOUT", Err: fmt.Errorf("must be positive, got %s", c.Reasoner.Timeout)}
	}
	if c.ResolveWorkers <= 0 {
		return &ConfigError{Key: "RESOLVE_WORKERS", Err: fmt.Errorf("must be positive, got %d", c.ResolveWorkers)}
	}
	if c.ReviewValueThreshold < 0 {
		return &ConfigError{Key: "REVIEW_VALUE_THRESHOLD", Err: fmt.Errorf("must not be negative, got %v", c.ReviewValueThreshold)}
	}
	switch c.Reasoner.Provider {
	case ReasonerService, ReasonerNone:
	case ReasonerAnthropic:
		if c.Reasoner.APIKey == "" {
			return &ConfigError{Key: "ANTHROPIC_API_KEY", Err: errors.New("required when REASONER_PROVIDER=anthropic")}
		}
	default:
		return &ConfigError{Key: "REASONER_PROVIDER", Err: fmt.Errorf("unsupported provider %q", c.Reasoner.Provider)}
	}
	switch c.Embedding.Provider {
	case EmbeddingLocal, EmbeddingNone:
	case EmbeddingOpenAI:
		if c.Embedding.APIKey == "" {
			return &ConfigError{Key: "EMBEDDING_API_KEY", Err: errors.New("required when EMBEDDING_PROVIDER=openai")}
		}
	default:
		return &ConfigError{Key: "EMBEDDING_PROVIDER", Err: fmt.Errorf("unsupported provider %q", c.Embedding.Provider)}
	}
	return nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback, &ConfigError{Key: key, Err: err}
	}
	return v, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback, &ConfigError{Key: key, Err: err}
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fallback, &ConfigError{Key: key, Err: err}
	}
	return d, nil
}
