package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkarpoff/entsync/internal/audit"
	"github.com/mkarpoff/entsync/internal/config"
	"github.com/mkarpoff/entsync/internal/server"
	"github.com/mkarpoff/entsync/internal/server/handlers"
	"github.com/mkarpoff/entsync/internal/server/storage/sqlite"
	syncengine "github.com/mkarpoff/entsync/internal/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to yaml config file (env-only when empty)")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "entsync server failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open entity storage: %w", err)
	}
	defer store.Close()

	var sink audit.Sink = audit.NopSink{}
	if cfg.Audit.Enabled {
		boltSink, err := audit.NewBoltSink(ctx, cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit sink: %w", err)
		}
		defer boltSink.Close()
		sink = boltSink
	}

	coordinator := syncengine.NewCoordinator(logger, store, sink, cfg.Sync.MaxParallel)

	srv := server.New(logger, coordinator, server.Options{
		Addr:    cfg.HTTP.Addr,
		Version: Version,
		JWTConfig: handlers.JWTConfig{
			Secret:         []byte(cfg.Auth.JWTSecret),
			AccessTokenTTL: cfg.Auth.AccessTokenTTL,
		},
		RateLimit:       cfg.RateLimit.Requests,
		RateWindow:      cfg.RateLimit.Window,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	logger.Info("entsync server starting",
		"version", Version,
		"storage", cfg.Storage.Path,
		"audit_enabled", cfg.Audit.Enabled)

	return srv.Run(ctx)
}

// newLogger настраивает slog с уровнем из конфигурации
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

func printVersion() {
	fmt.Printf("Entsync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
