// Kestrel - Real-time transaction risk scoring.
// Copyright (c) 2025 kestrelhq
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrelhq/kestrel/internal/api"
	"github.com/kestrelhq/kestrel/internal/bus"
	"github.com/kestrelhq/kestrel/internal/cache"
	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/internal/repository"
	"github.com/kestrelhq/kestrel/internal/rules"
	"github.com/kestrelhq/kestrel/internal/scorer"
	"github.com/kestrelhq/kestrel/internal/stats"
	"github.com/kestrelhq/kestrel/internal/trainer"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Rule Engine with the built-in risk factors
	engine, err := rules.NewBuiltinEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize Scorer and load the active model. A missing model is
	// not fatal: the scorer falls back to an untrained default until
	// training runs.
	sc := scorer.New(repo, cacheImpl, engine, cfg.Scoring.SenderProfileTTL)
	if err := sc.LoadActiveModel(ctx); err != nil {
		slog.Error("failed to load active model", "error", err)
		os.Exit(1)
	}
	slog.Info("scorer initialized", "model_version", sc.ActiveVersion())

	// Initialize Trainer with the standard data source chain:
	// CSV file (if configured), stored training examples, synthetic.
	sources := []trainer.DataSource{
		trainer.CSVSource{Path: os.Getenv("KESTREL_TRAINING_DATA")},
		trainer.RepositorySource{Repo: repo},
		trainer.SyntheticSource{},
	}
	tr := trainer.New(repo, sc, sources...)

	// Initialize Stats Aggregator and the scoring pipeline. When a
	// remote scoring service is configured, the pipeline calls it over
	// HTTP instead of the in-process scorer; /score stays local.
	agg := stats.New(repo)
	var pipeScorer pipeline.Scorer = sc
	if url := os.Getenv("KESTREL_SCORER_URL"); url != "" {
		pipeScorer = pipeline.NewRemoteScorer(url, cfg.Scoring.Timeout)
		slog.Info("using remote scorer", "url", url)
	}
	pipe := pipeline.New(repo, pipeScorer, agg, busImpl, cacheImpl, cfg.Scoring.Timeout)

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, pipe, sc, tr, agg, engine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 KESTREL                  ║")
	fmt.Println("  ║     Transaction Risk Scoring Engine       ║")
	fmt.Println("  ║      Every transfer, weighed.             ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /transactions              - Submit and score a transaction")
	fmt.Println("    GET  /transactions              - List transactions with filters")
	fmt.Println("    GET  /transactions/{id}         - Get transaction by ID")
	fmt.Println("    POST /transactions/{id}/status  - Correct a transaction status")
	fmt.Println("    POST /score                     - Score without persisting")
	fmt.Println("    GET  /stats                     - Stats over a date range")
	fmt.Println("    GET  /stats/summary             - Today / last week / last month")
	fmt.Println("    POST /models/train              - Train and activate a model")
	fmt.Println("    GET  /models                    - List model versions")
	fmt.Println("    GET  /models/active             - Get the active model")
	fmt.Println("    GET  /rules                     - List risk rules")
	fmt.Println("    POST /rules                     - Create a risk rule")
	fmt.Println("    GET  /health                    - Health check")
	fmt.Println()
}
