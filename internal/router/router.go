package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/folklore/luck-server-go/internal/config"
	"github.com/folklore/luck-server-go/internal/handler"
	"github.com/folklore/luck-server-go/internal/httputil"
	"github.com/folklore/luck-server-go/internal/middleware"
)

// Pinger is satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	API *handler.APIHandler
	DB  Pinger

	// RecordLimiter is nil when rate limiting is disabled.
	RecordLimiter   middleware.Limiter
	RateLimitPerMin int

	RequestTimeout time.Duration
	MaxBodySize    int64
}

func New(opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = config.ServerRequestTimeout
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(middleware.NewBodyLimitMiddleware(opts.MaxBodySize).Handler)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.NotFound)

	r.Get("/health", healthHandler(opts.DB))

	var recordMiddlewares []func(http.Handler) http.Handler
	if opts.RecordLimiter != nil && opts.RateLimitPerMin > 0 {
		limiter := middleware.NewRateLimitMiddleware(
			opts.RecordLimiter, opts.RateLimitPerMin, config.RateLimitWindow, "record",
		)
		recordMiddlewares = append(recordMiddlewares, limiter.Handler)
	}

	r.Mount("/api", opts.API.Routes(recordMiddlewares...))

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		httputil.WriteJSON(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UnixMilli(),
		})
	}
}
