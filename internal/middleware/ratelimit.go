package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/leads-generator/resolver/internal/config"
)

// maxTrackedClients bounds the per-client limiter table. When it is full the
// table is reset.
const maxTrackedClients = 10000

// RateLimiter applies a token bucket per client IP to the given route paths.
// A zero config disables limiting.
func RateLimiter(cfg config.RateLimitConfig, paths ...string) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	limited := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		limited[p] = struct{}{}
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*rate.Limiter)
	)
	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := clients[key]; ok {
			return l
		}
		if len(clients) >= maxTrackedClients {
			clients = make(map[string]*rate.Limiter)
		}
		l := rate.NewLimiter(rate.Every(perRequest), cfg.Requests)
		clients[key] = l
		return l
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := limited[c.Path()]; !ok {
				return next(c)
			}

			if !limiterFor(c.RealIP()).Allow() {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(perRequest.Seconds())+1))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}

			return next(c)
		}
	}
}
