package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fablehouse/reader-server/internal/config"
	"github.com/fablehouse/reader-server/internal/database"
	"github.com/fablehouse/reader-server/internal/handler"
	"github.com/fablehouse/reader-server/internal/jobs"
	"github.com/fablehouse/reader-server/internal/metrics"
	"github.com/fablehouse/reader-server/internal/middleware"
	"github.com/fablehouse/reader-server/internal/redis"
	"github.com/fablehouse/reader-server/internal/repository"
	"github.com/fablehouse/reader-server/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Optional local .env; in deployed environments config comes from real
	// environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations applied")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	childRepo := repository.NewChildProfileRepository(db.DB)
	deviceRepo := repository.NewDeviceRepository(db.DB)
	pairingCodeRepo := repository.NewPairingCodeRepository(db.DB)
	claimStore := repository.NewClaimStore(db)

	pairingService := service.NewPairingService(
		pairingCodeRepo, childRepo, deviceRepo, claimStore,
		cfg.PairingCodeDefaultTTL(), cfg.PairingCodeMaxTTL(),
	)
	deviceService := service.NewDeviceService(deviceRepo, childRepo)
	readerService := service.NewReaderService(deviceRepo, childRepo)

	claimRateLimitMiddleware := middleware.NewClaimRateLimitMiddleware(redisClient.Client, cfg.ClaimRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	parentHandler := handler.NewParentHandler(pairingService, deviceService)
	readerHandler := handler.NewReaderHandler(pairingService, readerService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		pingCtx, pingCancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer pingCancel()
		if err := db.Ping(pingCtx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else if err := redisClient.Ping(pingCtx).Err(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/parent/api", func(r chi.Router) {
		r.Use(middleware.RequireParent)
		r.Mount("/", parentHandler.Routes())
	})

	r.Route("/reader/api", func(r chi.Router) {
		r.With(claimRateLimitMiddleware.Handler).Post("/pairing/claim", readerHandler.ClaimPairingCode)
		r.Get("/context", readerHandler.ReaderContext)
		r.Post("/usage", readerHandler.ConsumeUsage)
	})

	cleanupJob := jobs.NewCleanupJob(pairingCodeRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

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
