package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mauv0809/ripple-snapshot/internal/cache"
	"github.com/mauv0809/ripple-snapshot/internal/config"
	"github.com/mauv0809/ripple-snapshot/internal/database"
	server "github.com/mauv0809/ripple-snapshot/internal/http"
	"github.com/mauv0809/ripple-snapshot/internal/inngest"
	"github.com/mauv0809/ripple-snapshot/internal/metrics"
	"github.com/mauv0809/ripple-snapshot/internal/notifier/slack"
	"github.com/mauv0809/ripple-snapshot/internal/processor"
	"github.com/mauv0809/ripple-snapshot/internal/public"
	"github.com/mauv0809/ripple-snapshot/internal/pubsub"
	"github.com/mauv0809/ripple-snapshot/internal/rankings"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.InitDB(ctx, cfg.Database)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	reopen := func(ctx context.Context) (*sql.DB, error) {
		fresh, _, err := database.Open(ctx, cfg.Database)
		return fresh, err
	}
	store := rankings.New(db, dialect, reopen)
	defer func() {
		log.Info("Closing ranking store")
		if err := store.Close(); err != nil {
			log.Error("Failed to close ranking store", "error", err)
		}
	}()

	snapshotCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %s", err)
	}
	defer snapshotCache.Close()

	announcer, err := pubsub.New(ctx, cfg.Announce.ProjectID)
	if err != nil {
		log.Fatalf("Failed to initialize pubsub: %s", err)
	}
	defer announcer.Close()

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	opts := processor.OptionsFromConfig(cfg)
	if cfg.Slack.Enabled() {
		opts.Notifier = slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)
	}
	proc := processor.New(store, snapshotCache, metricsSvc, announcer, opts)
	reader := public.New(snapshotCache, metricsSvc, public.Options{
		FlagDefault:    cfg.FeatureFlagEnabled(),
		StaleThreshold: time.Duration(cfg.Ripple.StaleThresholdMs) * time.Millisecond,
	})

	var inngestHandler http.Handler
	if cfg.Inngest.Enabled() {
		inngestProvider, err := inngest.NewProvider(cfg.Inngest)
		if err != nil {
			log.Fatalf("Failed to initialize inngest: %s", err)
		}
		inngestClient, err := inngest.New(inngestProvider, proc, cfg.Inngest.Cron)
		if err != nil {
			log.Fatalf("Failed to register inngest functions: %s", err)
		}
		inngestHandler = inngestClient.Serve()
	}

	s := server.NewServer(reader, proc, metricsHandler, inngestHandler, cfg)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	go processor.Schedule(ctx, proc, cfg.Ripple.RefreshInterval)

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
