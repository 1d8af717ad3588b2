package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/octobees/leads-generator/resolver/internal/auth"
	"github.com/octobees/leads-generator/resolver/internal/config"
	"github.com/octobees/leads-generator/resolver/internal/database"
	"github.com/octobees/leads-generator/resolver/internal/handler"
	"github.com/octobees/leads-generator/resolver/internal/metrics"
	middlewarepkg "github.com/octobees/leads-generator/resolver/internal/middleware"
	"github.com/octobees/leads-generator/resolver/internal/repository"
	"github.com/octobees/leads-generator/resolver/internal/router"
	"github.com/octobees/leads-generator/resolver/internal/service"
	"github.com/octobees/leads-generator/resolver/internal/service/adjudication"
	"github.com/octobees/leads-generator/resolver/internal/service/candidates"
	"github.com/octobees/leads-generator/resolver/internal/service/resolution"
	"github.com/octobees/leads-generator/resolver/internal/service/review"
	"github.com/octobees/leads-generator/resolver/internal/service/routing"
	"github.com/octobees/leads-generator/resolver/internal/service/scoring"
	"github.com/octobees/leads-generator/resolver/internal/service/similarity"
)

// phoneRegion is the default region for parsing crawled phone numbers.
const phoneRegion = "AU"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("failed to prepare schema: %v", err)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	appMetrics := metrics.New()

	reviewersRepo := repository.NewPGXReviewersRepository(pool)
	registryRepo := repository.NewPGXRegistryRepository(pool)
	decisionsRepo := repository.NewPGXDecisionsRepository(pool)
	reviewsRepo := repository.NewPGXReviewsRepository(pool)

	registry := resolution.NewRegistry(registryRepo)
	if _, err := registry.Reload(ctx); err != nil {
		log.Printf("component=registry action=startup_reload error=%q", err.Error())
	}

	scorer, err := similarity.NewScorer(cfg.Weights, buildEmbedder(cfg.Embedding))
	if err != nil {
		log.Fatalf("failed to build scorer: %v", err)
	}
	filter, err := candidates.NewFilter(cfg.ShortlistCap)
	if err != nil {
		log.Fatalf("failed to build candidate filter: %v", err)
	}
	confidenceRouter, err := routing.NewRouter(cfg.Thresholds)
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	workflow := review.NewWorkflow(
		review.WithPolicy(review.ThresholdPolicy(cfg.ReviewValueThreshold)),
		review.WithEstimator(scoring.NewEstimator(phoneRegion)),
		review.WithSink(review.FanOut{review.LogSink{}, reviewsRepo, appMetrics}),
	)
	open, err := reviewsRepo.ListOpen(ctx)
	if err != nil {
		log.Fatalf("failed to restore review queue: %v", err)
	}
	workflow.Restore(open)

	deps := resolution.Deps{
		Filter:   filter,
		Scorer:   scorer,
		Router:   confidenceRouter,
		Reviews:  workflow,
		Sink:     decisionsRepo,
		Observer: appMetrics,
		Workers:  cfg.ResolveWorkers,
	}
	adjudicator, err := buildAdjudicator(cfg.Reasoner, appMetrics)
	if err != nil {
		log.Fatalf("failed to build adjudicator: %v", err)
	}
	if adjudicator != nil {
		deps.Adjudicator = adjudicator
	}
	resolver, err := resolution.New(deps)
	if err != nil {
		log.Fatalf("failed to build resolver: %v", err)
	}

	authService := service.NewAuthService(reviewersRepo, jwtManager)
	resolveService := service.NewResolveService(resolver, registry, decisionsRepo)
	registryService := service.NewRegistryService(registryRepo, registry)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging())
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Reviewers: handler.NewReviewerAdminHandler(authService),
		Resolve:   handler.NewResolveHandler(resolveService),
		Reviews:   handler.NewReviewHandler(workflow),
		Registry:  handler.NewRegistryHandler(registryService),
		Metrics:   appMetrics.Handler(),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + cfg.Port)
	}()
	log.Printf("component=server port=%s reasoner=%s embedding=%s registry=%d", cfg.Port, cfg.Reasoner.Provider, cfg.Embedding.Provider, len(registry.Records()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func buildEmbedder(cfg config.EmbeddingConfig) similarity.Embedder {
	switch cfg.Provider {
	case config.EmbeddingOpenAI:
		return similarity.NewHTTPEmbedder(&http.Client{Timeout: 15 * time.Second}, cfg.BaseURL, cfg.APIKey, cfg.Model)
	case config.EmbeddingLocal:
		return similarity.NewHashingEmbedder(0)
	default:
		return nil
	}
}

// buildAdjudicator returns nil when adjudication is disabled.
func buildAdjudicator(cfg config.ReasonerConfig, observer adjudication.Observer) (*adjudication.Adjudicator, error) {
	var (
		reasoner adjudication.Reasoner
		err      error
	)
	switch cfg.Provider {
	case config.ReasonerService:
		reasoner, err = adjudication.NewServiceReasoner(nil, cfg.BaseURL)
	case config.ReasonerAnthropic:
		reasoner, err = adjudication.NewAnthropicReasoner(cfg.APIKey, cfg.Model)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pacing *rate.Limiter
	if rl := cfg.RateLimit; rl != nil && rl.Requests > 0 && rl.Interval > 0 {
		pacing = rate.NewLimiter(rate.Every(rl.Interval/time.Duration(rl.Requests)), rl.Requests)
	}
	limiter, err := adjudication.NewLimiter(cfg.Concurrency, pacing)
	if err != nil {
		return nil, err
	}
	return adjudication.New(reasoner, limiter, adjudication.Config{MaxCalls: cfg.MaxCalls, CallTimeout: cfg.Timeout}, observer)
}
