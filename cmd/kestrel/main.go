// Kestrel - Business licensing requirements, matched in milliseconds.
// Copyright (c) 2025 opensource-regtech
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/opensource-regtech/kestrel/internal/advisor"
	"github.com/opensource-regtech/kestrel/internal/api"
	"github.com/opensource-regtech/kestrel/internal/bus"
	"github.com/opensource-regtech/kestrel/internal/catalog"
	"github.com/opensource-regtech/kestrel/internal/config"
	"github.com/opensource-regtech/kestrel/internal/domain"
	"github.com/opensource-regtech/kestrel/internal/ratelimit"
	"github.com/opensource-regtech/kestrel/internal/report"
	"github.com/opensource-regtech/kestrel/internal/repository"
	"github.com/opensource-regtech/kestrel/internal/rules"
	"github.com/opensource-regtech/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a kestrel.yaml configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kestrel: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Logging))

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"catalog", cfg.Catalog.Source,
		"repository", cfg.Repository.Driver,
		"ratelimit", cfg.RateLimit.Store,
		"eventbus", cfg.EventBus.Type,
		"report", cfg.Report.Provider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.Tracing.Enabled {
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		slog.Info("trace propagation enabled", "service", cfg.Tracing.ServiceName)
	}

	healthChecks := map[string]api.Pinger{}

	// The repository is only opened when the catalog lives in it or is
	// mirrored into it.
	var repo *repository.SQLRepository
	if cfg.Catalog.Source == domain.CatalogSourceDatabase || cfg.Catalog.Seed {
		repo, err = repository.New(cfg.Repository)
		if err != nil {
			slog.Error("failed to initialize repository", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		healthChecks["repository"] = repo
		slog.Info("repository initialized", "driver", cfg.Repository.Driver)
	}

	var catalogRepo domain.CatalogRepository
	if repo != nil {
		catalogRepo = repo
	}
	cat, err := catalog.Open(ctx, cfg.Catalog, catalogRepo)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	engine := rules.NewEngine(cat)
	slog.Info("matching engine initialized",
		"requirements_count", engine.RequirementsCount(),
		"rules_count", engine.RulesCount(),
	)

	adv, err := advisor.NewDefault()
	if err != nil {
		slog.Error("failed to initialize advisor", "error", err)
		os.Exit(1)
	}

	reports, closeReports, err := newReportService(ctx, cfg.Report)
	if err != nil {
		slog.Error("failed to initialize report generator", "error", err)
		os.Exit(1)
	}
	defer closeReports()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(cfg.RateLimit)
		if err != nil {
			slog.Error("failed to initialize rate limiter", "error", err)
			os.Exit(1)
		}
		defer limiter.Close()
		healthChecks["ratelimit"] = limiter
		slog.Info("rate limiter initialized",
			"store", cfg.RateLimit.Store,
			"requests", cfg.RateLimit.Requests,
			"window", cfg.RateLimit.Window.String(),
		)
	}

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	healthChecks["eventbus"] = busImpl
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	var stats *worker.Worker
	if cfg.EventBus.Type != "" && cfg.EventBus.Type != "none" {
		stats = worker.NewWorker(busImpl, slog.Default())
		if err := stats.Start(); err != nil {
			slog.Error("failed to start event worker", "error", err)
			os.Exit(1)
		}
		defer stats.Stop()
	}

	srv := api.NewServer(cfg.Server, api.Dependencies{
		Engine:       engine,
		Advisor:      adv,
		Reports:      reports,
		Limiter:      limiter,
		Bus:          busImpl,
		Stats:        stats,
		HealthChecks: healthChecks,
		Metrics:      cfg.Metrics,
		Version:      Version,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

// newLogger builds the process logger from the logging section.
func newLogger(w io.Writer, cfg domain.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
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
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newReportService wires the Gemini generator when configured. The returned
// close function is always safe to call.
func newReportService(ctx context.Context, cfg domain.ReportConfig) (*report.Service, func(), error) {
	opts := []report.ServiceOption{report.WithTimeout(cfg.Timeout)}

	if cfg.Provider != domain.ReportProviderGemini {
		slog.Info("report generator disabled, using fallback reports")
		return report.NewService(opts...), func() {}, nil
	}

	client, err := report.NewGeminiClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, nil, err
	}
	gen := report.NewGeminiGenerator(client, cfg.Model, cfg.Temperature)
	slog.Info("report generator initialized", "provider", cfg.Provider, "model", cfg.Model)

	opts = append(opts, report.WithGenerator(gen))
	return report.NewService(opts...), func() {
		if err := gen.Close(); err != nil {
			slog.Warn("failed to close report generator", "error", err)
		}
	}, nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║                 KESTREL                   ║")
	fmt.Println("  ║   Business Licensing Requirements Engine  ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Catalog:  %s\n", cfg.Catalog.Source)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/v1/requirements/match  - Match a business profile")
	fmt.Println("    POST /api/v1/recommendations     - Advisory notes for a profile")
	fmt.Println("    POST /api/v1/reports             - Licensing report for a profile")
	fmt.Println("    GET  /api/v1/requirements        - List the catalog")
	fmt.Println("    GET  /api/v1/requirements/{id}   - Requirement details")
	fmt.Println("    GET  /api/v1/business-types      - Accepted business types")
	if cfg.EventBus.Type != "" && cfg.EventBus.Type != "none" {
		fmt.Println("    GET  /api/v1/stats               - Match and report totals")
	}
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println()
}
