package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-generator/resolver/internal/auth"
	"github.com/octobees/leads-generator/resolver/internal/config"
	"github.com/octobees/leads-generator/resolver/internal/handler"
	middlewarepkg "github.com/octobees/leads-generator/resolver/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Reviewers *handler.ReviewerAdminHandler
	Resolve   *handler.ResolveHandler
	Reviews   *handler.ReviewHandler
	Registry  *handler.RegistryHandler
	Metrics   http.Handler
}

// Register wires all HTTP routes for the resolver API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})
	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}

	resolveLimiter := middlewarepkg.RateLimiter(cfg.RateLimitResolve, "/resolve", "/admin/resolve-csv")

	e.POST("/auth/login", handlers.Auth.Login)
	e.POST("/resolve", handlers.Resolve.Resolve, resolveLimiter)

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager))

	reviews := secured.Group("/reviews", middlewarepkg.RequireRole(auth.RoleReviewer, auth.RoleAdmin))
	reviews.GET("", handlers.Reviews.List)
	reviews.GET("/summary", handlers.Reviews.Summary)
	reviews.GET("/report", handlers.Reviews.Report)
	reviews.POST("/claim-next", handlers.Reviews.ClaimNext)
	reviews.GET("/decisions/:crawl_id", handlers.Resolve.History)
	reviews.GET("/:id", handlers.Reviews.Get)
	reviews.POST("/:id/claim", handlers.Reviews.Claim)
	reviews.POST("/:id/resolve", handlers.Reviews.Resolve)

	admin := secured.Group("/admin", middlewarepkg.RequireRole(auth.RoleAdmin))
	admin.GET("/reviewers", handlers.Reviewers.List)
	admin.POST("/reviewers", handlers.Reviewers.Create)
	admin.GET("/registry", handlers.Registry.List)
	admin.POST("/registry/reload", handlers.Registry.Reload)
	admin.POST("/registry/upload-csv", handlers.Registry.UploadCSV)
	admin.POST("/resolve-csv", handlers.Resolve.ResolveCSV, resolveLimiter)
}
