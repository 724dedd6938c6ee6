package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/folklore/luck-server-go/internal/config"
	"github.com/folklore/luck-server-go/internal/database"
	"github.com/folklore/luck-server-go/internal/handler"
	"github.com/folklore/luck-server-go/internal/jobs"
	"github.com/folklore/luck-server-go/internal/middleware"
	"github.com/folklore/luck-server-go/internal/redis"
	"github.com/folklore/luck-server-go/internal/repository"
	"github.com/folklore/luck-server-go/internal/router"
	"github.com/folklore/luck-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	cancel()
	log.Info().Str("driver", db.Driver()).Msg("database connected")

	interactionRepo := repository.NewInteractionRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)

	luckService := service.NewLuckService(db, interactionRepo, sessionRepo)
	statsService := service.NewStatsService(interactionRepo, sessionRepo)

	var recordLimiter middleware.Limiter
	if cfg.RateLimitEnabled() {
		var closeLimiter func()
		recordLimiter, closeLimiter = newRecordLimiter(cfg)
		defer closeLimiter()
	}

	apiHandler := handler.NewAPIHandler(luckService, statsService)

	r := router.New(router.Options{
		API:             apiHandler,
		DB:              db,
		RecordLimiter:   recordLimiter,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RequestTimeout:  config.ServerRequestTimeout,
		MaxBodySize:     config.MaxBodySize,
	})

	if interval := cfg.ReconcileInterval(); interval > 0 {
		reconcileJob := jobs.NewReconcileJob(db, sessionRepo, interval)
		reconcileJob.Start()
		defer reconcileJob.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newRecordLimiter prefers the shared Redis limiter and falls back to the
// in-process one when Redis is not configured or not reachable.
func newRecordLimiter(cfg *config.Config) (middleware.Limiter, func()) {
	noop := func() {}
	if cfg.RedisURL == "" {
		return middleware.NewRateLimiter(), noop
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	defer cancel()

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory rate limiter")
		return middleware.NewRateLimiter(), noop
	}
	log.Info().Msg("redis connected")

	return service.NewRateLimiter(redisClient.Client), func() { _ = redisClient.Close() }
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
