package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/pgstore"
	"shareit/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	store, err := openStore(cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := events.NewEventBus()
	bus.OnError(func(event *events.Event, err error) {
		logger.Error().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})

	publisher := initPublisher(cfg, bus, &logger)
	if publisher != nil {
		defer publisher.Close()
	}

	clock := domain.SystemClock{}
	directory := service.NewDirectory(store, store, logging.Component(&logger, "directory"))
	guard := service.DateGuard{Enabled: cfg.Booking.PastDateGuard, Tolerance: cfg.Booking.PastDateTolerance}

	services := api.Services{
		Bookings: service.NewBookingService(store, directory, bus, clock, guard, logging.Component(&logger, "bookings")),
		Items:    service.NewItemService(store, store, directory, clock, logging.Component(&logger, "items")),
		Users:    service.NewUserService(store, directory, logging.Component(&logger, "users")),
		Store:    store,
	}
	httpServer := api.NewHTTPServer(cfg.API, services, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)
	startBackups(ctx, cfg, &logger)

	return serve(ctx, httpServer, cfg, &logger)
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
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func openStore(cfg *config.Config, logger *zerolog.Logger) (domain.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err := pgstore.Open(cfg.Database.Postgres, logger)
		if err != nil {
			logger.Error().Err(err).Str("host", cfg.Database.Postgres.Host).Msg("init postgres")
			return nil, err
		}
		logger.Info().Str("host", cfg.Database.Postgres.Host).Str("dbname", cfg.Database.Postgres.DBName).Msg("postgres connected")
		return store, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, err
		}
		return db, nil
	}
}

func initPublisher(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *events.AMQPPublisher {
	if cfg.Events.AMQPURL == "" {
		return nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		logger.Warn().Err(err).Msg("amqp connection failed, continuing without event export")
		return nil
	}
	publisher.Attach(bus, events.BookingEventTypes...)

	logger.Info().Str("exchange", cfg.Events.Exchange).Msg("amqp publisher attached")
	return publisher
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

// startBackups runs the snapshot loop for the SQLite store only.
func startBackups(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled || cfg.Database.Driver != config.DriverSQLite {
		return
	}
	backups := database.NewBackupService(cfg.Database.Path, cfg.Backup, logging.Component(logger, "backup"))
	go backups.Start(ctx)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("addr", httpServer.Addr()).Msg("server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
