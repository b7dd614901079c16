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

	"github.com/joho/godotenv"

	"github.com/use-agent/shopsavvy/aggregator"
	"github.com/use-agent/shopsavvy/api"
	"github.com/use-agent/shopsavvy/cache"
	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/engine"
	"github.com/use-agent/shopsavvy/extractor"
	"github.com/use-agent/shopsavvy/simhash"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	envErr := godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", envErr)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("shopsavvy starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"concurrent", cfg.Search.Concurrent,
		"delay", cfg.Search.PolitenessDelay,
	)

	// ── 3. Fetch engines ────────────────────────────────────────────
	engineOpts := engine.Options{
		UserAgent:      cfg.HTTP.UserAgent,
		AcceptLanguage: cfg.HTTP.AcceptLanguage,
		MaxBodyBytes:   cfg.Engine.MaxBodyBytes,
	}
	var engines []engine.Engine
	if cfg.Engine.EnableUTLS {
		engines = append(engines, engine.NewHTTPEngine(engineOpts))
	}
	engines = append(engines, engine.NewStdEngine(engineOpts))
	dispatcher := engine.NewDispatcher(engines, engine.NewDomainMemory(cfg.Engine.MemoryTTL))
	slog.Info("fetch dispatcher ready", "engines", len(engines))

	// ── 4. Sources and aggregator ───────────────────────────────────
	jumia, err := extractor.NewJumia(cfg.Jumia)
	if err != nil {
		slog.Error("failed to initialise jumia source", "error", err)
		os.Exit(1)
	}
	kilimall, err := extractor.NewKilimall(cfg.Kilimall)
	if err != nil {
		slog.Error("failed to initialise kilimall source", "error", err)
		os.Exit(1)
	}

	drift := simhash.NewDriftMonitor(cfg.Search.DriftThreshold)
	agg := aggregator.New(dispatcher, []extractor.Extractor{jumia, kilimall}, aggregator.Options{
		Delay:      cfg.Search.PolitenessDelay,
		Concurrent: cfg.Search.Concurrent,
		Drift:      drift,
	})

	// ── 5. Cache ────────────────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, time.Hour)
	defer cc.Close()

	// ── 6. Setup router ─────────────────────────────────────────────
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	router := api.NewRouter(ctx, cfg, api.Deps{
		Searcher:  agg,
		Cache:     cc,
		Drift:     drift,
		StartTime: time.Now(),
	})

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight searches can take a full politeness cycle to drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second+cfg.Search.PolitenessDelay)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("shopsavvy stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
