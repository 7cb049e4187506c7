package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mareeba/internal/api"
	"mareeba/internal/clock"
	"mareeba/internal/config"
	"mareeba/internal/database"
	"mareeba/internal/domain"
	"mareeba/internal/events"
	"mareeba/internal/export"
	"mareeba/internal/google"
	"mareeba/internal/logging"
	"mareeba/internal/metrics"
	"mareeba/internal/models"
	"mareeba/internal/repository"
	"mareeba/internal/schedule"
	"mareeba/internal/service"
	"mareeba/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog, err := schedule.NewCatalog(cfg.Sessions)
	if err != nil {
		logger.Error().Err(err).Msg("invalid session catalog")
		return err
	}

	clk, err := clock.New(cfg.Club.Timezone)
	if err != nil {
		logger.Error().Err(err).Str("timezone", cfg.Club.Timezone).Msg("invalid club timezone")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := initAvailabilityCache(redisClient, &logger)

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	var sheetsWorker *worker.SheetsWorker
	if sheetsService != nil {
		retryPolicy := worker.RetryPolicy{
			MaxRetries:    cfg.Worker.MaxRetries,
			InitialDelay:  time.Duration(cfg.Worker.BaseDelaySeconds) * time.Second,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		}
		sheetsWorker = worker.NewSheetsWorker(db, sheetsService, redisClient, retryPolicy, &logger)
		go sheetsWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	// The worker interface is nil unless sheets sync is configured; a
	// typed nil pointer would defeat the services' nil checks.
	var syncWorker domain.SyncWorker
	if sheetsWorker != nil {
		syncWorker = sheetsWorker
	}

	playerService := service.NewPlayerService(db, eventBus, clk, &logger)
	bookingService := service.NewBookingService(db, catalog, cache, eventBus, syncWorker, clk, &logger)
	paymentService := service.NewPaymentService(db, cache, eventBus, syncWorker, clk, &logger)
	exporter := export.NewExporter(cfg.Exports.Path, &logger)

	httpServer := api.NewHTTPServer(cfg.API, playerService, bookingService, paymentService, exporter, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("create database directory")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("create export directory")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initAvailabilityCache(redisClient *redis.Client, logger *zerolog.Logger) domain.AvailabilityCache {
	ttl := time.Duration(models.AvailabilityCacheTTL) * time.Second
	memory := repository.NewMemoryAvailabilityCache(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisAvailabilityCache(redisClient, ttl)
	return repository.NewFailoverAvailabilityCache(primary, memory, logger)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if !cfg.Google.Enabled {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	if err := sheetsService.TestConnection(ctx); err != nil {
		if email, emailErr := google.ServiceAccountEmail(cfg.Google.CredentialsFile); emailErr == nil {
			logger.Warn().Str("service_account", email).Msg("share the spreadsheet with the service account")
		}
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

// subscribeBookingEvents keeps an audit trail of booking lifecycle
// events in the log stream; the sheets export is driven directly by the
// services, not through the bus.
func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	handler := func(ev *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}
		logger.Info().
			Str("event", ev.Type).
			Str("booking_id", payload.BookingID).
			Str("player_id", payload.PlayerID).
			Str("session_date", payload.SessionDate).
			Str("session_time", payload.SessionTime).
			Msg("booking event")
		return nil
	}

	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingConfirmed, handler)
	bus.Subscribe(events.EventBookingCancelled, handler)
	bus.Subscribe(events.EventPaymentConfirmed, handler)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
