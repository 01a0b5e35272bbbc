package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/Collector/internal/api"
	"github.com/MikeSquared-Agency/Collector/internal/auth"
	"github.com/MikeSquared-Agency/Collector/internal/broker"
	"github.com/MikeSquared-Agency/Collector/internal/config"
	"github.com/MikeSquared-Agency/Collector/internal/hermes"
	"github.com/MikeSquared-Agency/Collector/internal/ingest"
	"github.com/MikeSquared-Agency/Collector/internal/metrics"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var db store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		db = pg
		logger.Info("connected to database")
	} else {
		db = store.NewMemoryStore()
		logger.Info("no database configured, using in-memory store")
	}
	defer db.Close()

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Auth
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.TokenTTL())
	if err != nil {
		logger.Error("failed to create token service", "error", err)
		os.Exit(1)
	}
	directory := auth.NewStoreDirectory(db, logger)
	created, err := directory.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdmin)
	if err != nil {
		logger.Error("failed to bootstrap admin", "error", err)
		os.Exit(1)
	}
	if created {
		logger.Info("bootstrap admin created", "username", cfg.Auth.BootstrapAdmin.Username)
	}

	// Ingestion
	pipeline := ingest.NewPipeline(db, hermes.NewPublisher(hermesClient, logger), m, cfg.Ingest.MaxRows, logger)
	if cfg.Seed.Enabled {
		batch, err := pipeline.Seed(ctx)
		if err != nil {
			logger.Error("failed to seed cases", "error", err)
			os.Exit(1)
		}
		if batch != nil {
			logger.Info("seeded demo portfolio", "cases", batch.Accepted())
		}
	}

	// Broker
	b := broker.New(db, hermesClient, m, cfg, logger)
	b.SetupSubscriptions()
	b.Start(ctx)
	defer b.Stop()
	logger.Info("broker started", "stats_interval", cfg.StatsInterval())

	// API server
	router := api.NewRouter(api.Deps{
		Store:     db,
		Pipeline:  pipeline,
		Broker:    b,
		Directory: directory,
		Registrar: directory,
		Tokens:    tokens,
		Metrics:   m,
		Config:    cfg,
		Logger:    logger,
	})
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
