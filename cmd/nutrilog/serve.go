package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/nutrilog/internal/api"
	"github.com/terraincognita07/nutrilog/internal/config"
	"github.com/terraincognita07/nutrilog/internal/db"
	"github.com/terraincognita07/nutrilog/internal/events"
	"github.com/terraincognita07/nutrilog/internal/gemini"
	"github.com/terraincognita07/nutrilog/internal/i18n"
	"github.com/terraincognita07/nutrilog/internal/logger"
	"github.com/terraincognita07/nutrilog/internal/metrics"
	"github.com/terraincognita07/nutrilog/internal/ratelimit"
	"github.com/terraincognita07/nutrilog/internal/security"
	"github.com/terraincognita07/nutrilog/internal/services"
)

const (
	shutdownTimeout      = 10 * time.Second
	redisRateLimitPrefix = "nutrilog:ratelimit:"
)

func runServer(ctx context.Context, cfg config.Config) error {
	log := logger.New(serviceName, cfg.LogLevel, cfg.LogPretty)
	cfg.LogSummary(log)

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	database, err := db.Open(databaseOptions(cfg, log))
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	i18nManager, err := i18n.NewManager(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("i18n init failed: %w", err)
	}
	verifier, err := security.NewInitDataVerifier(cfg.BotToken, cfg.InitDataMaxAge, cfg.InitDataClockSkew)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	publisher := newPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("event publisher close failed")
		}
	}()

	analyzer, err := newFoodAnalyzer(cfg)
	if err != nil {
		return err
	}
	if analyzer == nil {
		log.Warn().Msg("gemini api key not set, photo analysis disabled")
	}

	photoLimiter, closeLimiter := newPhotoLimiter(ctx, cfg, log)
	defer func() {
		if err := closeLimiter(); err != nil {
			log.Warn().Err(err).Msg("rate limiter close failed")
		}
	}()

	repositories := db.NewRepositories(database)
	handler, err := api.NewHandler(api.Dependencies{
		Verifier:     verifier,
		Profiles:     services.NewProfileService(repositories.Profiles, log),
		Ledger:       services.NewLedgerService(repositories.Ledger, publisher, recorder, log),
		Reports:      services.NewReportService(repositories.Ledger, i18nManager, location, recorder, log),
		Photos:       services.NewPhotoService(analyzer, cfg.AnalyzeTimeout, recorder, log),
		I18n:         i18nManager,
		Metrics:      recorder,
		PhotoLimiter: photoLimiter,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := api.NewApp(handler, api.AppOptions{CORSAllowOrigins: cfg.CORSAllowOrigins})

	sigCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr()).Str("timezone", location.String()).Msg("nutrilog listening")
	if err := app.Listen(cfg.HTTPAddr()); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func databaseOptions(cfg config.Config, log zerolog.Logger) db.Options {
	return db.Options{
		Driver:       cfg.DBDriver,
		SQLitePath:   cfg.DBPath,
		PostgresDSN:  cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		Logger:       log,
	}
}

func newPublisher(cfg config.Config, log zerolog.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NoopPublisher{}
	}
	return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
}

// newFoodAnalyzer returns a nil interface when no key is configured so the
// photo service reports itself as not configured.
func newFoodAnalyzer(cfg config.Config) (services.FoodAnalyzer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil
	}
	client, err := gemini.NewClient(gemini.Options{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.AnalyzeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client init failed: %w", err)
	}
	return client, nil
}

// newPhotoLimiter shares limits through redis when configured and reachable,
// otherwise limits per process. The returned func releases the connection.
func newPhotoLimiter(ctx context.Context, cfg config.Config, log zerolog.Logger) (ratelimit.Limiter, func() error) {
	noop := func() error { return nil }
	if cfg.RedisURL == "" {
		return ratelimit.NewLocal(cfg.PhotoRatePerMinute), noop
	}
	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process rate limiter")
		return ratelimit.NewLocal(cfg.PhotoRatePerMinute), noop
	}
	return ratelimit.NewRedis(client, redisRateLimitPrefix, cfg.PhotoRatePerMinute, log), client.Close
}
