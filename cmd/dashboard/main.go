package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Fantasim/p2pads/internal/adsview"
	"github.com/Fantasim/p2pads/internal/api"
	"github.com/Fantasim/p2pads/internal/backend"
	"github.com/Fantasim/p2pads/internal/batch"
	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/db"
	"github.com/Fantasim/p2pads/internal/logging"
	"github.com/Fantasim/p2pads/internal/metrics"
	"github.com/Fantasim/p2pads/internal/models"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "status":
		if err := runStatus(); err != nil {
			slog.Error("status error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("%s %s\n", config.AppName, version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: dashboard <command>

Commands:
  serve     Start the operator console on localhost
  status    Print both automation status snapshots
  version   Print version information
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	api.Version = version

	slog.Info("starting console",
		"version", version,
		"port", cfg.Port,
		"backend", cfg.APIBaseURL,
		"dbPath", cfg.DBPath,
		"policyFile", cfg.PolicyFile,
		"logLevel", cfg.LogLevel,
	)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(context.Background()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	pruned, err := database.PruneActions(context.Background(), time.Now().Add(-config.JournalMaxAge))
	if err != nil {
		slog.Warn("action journal prune failed", "error", err)
	} else if pruned > 0 {
		slog.Info("old journal entries pruned", "count", pruned)
	}

	stats, err := metrics.New(cfg.StatsdAddr)
	if err != nil {
		return fmt.Errorf("failed to setup metrics: %w", err)
	}
	defer stats.Close()

	client := backend.NewClient(cfg.APIBaseURL, cfg.AccessToken)

	policy, err := batch.LoadOrCreatePolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to load quantity policy: %w", err)
	}
	batchSvc := batch.NewService(client, policy, database, stats)

	view := adsview.New(client, adsview.Options{
		PollInterval: config.StatusPollInterval,
		ToggleRPS:    cfg.ToggleRPS,
		Journal:      database,
		Metrics:      stats,
	})
	defer view.Close()

	// A backend that is down at startup is not fatal; the page shows the
	// error and the operator can refresh.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	if err := view.Load(loadCtx); err != nil {
		slog.Warn("initial ads page load failed", "error", err)
	}
	loadCancel()

	router := api.NewRouter(api.Dependencies{
		Config: cfg,
		DB:     database,
		View:   view,
		Batch:  batchSvc,
		Orders: client,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	slog.Info("server configured",
		"readTimeout", config.ServerReadTimeout,
		"writeTimeout", config.ServerWriteTimeout,
		"idleTimeout", config.ServerIdleTimeout,
	)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			listenErr <- err
		}
	}()

	select {
	case <-done:
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	}

	slog.Info("initiating graceful shutdown",
		"timeout", config.ShutdownTimeout,
	)

	// Stop polling first so no new backend requests start during shutdown.
	view.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// runStatus fetches both automation snapshots once and prints a summary.
func runStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client := backend.NewClient(cfg.APIBaseURL, cfg.AccessToken)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	snaps := make([]*models.AutomationSnapshot, len(models.AllViewModes))
	g, gctx := errgroup.WithContext(ctx)
	for i, mode := range models.AllViewModes {
		g.Go(func() error {
			snap, err := client.FetchStatus(gctx, mode)
			if err != nil {
				return fmt.Errorf("%s status: %w", mode, err)
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, mode := range models.AllViewModes {
		snap := snaps[i]
		state := "stopped"
		if snap.Running {
			state = "running"
		}
		fmt.Printf("%-13s %-8s interval=%ds ads=%d last_success=%s\n",
			mode, state, snap.IntervalSeconds, len(snap.Ads), orDash(snap.LastSuccessAt))
		if snap.LastError != "" {
			fmt.Printf("%-13s last_error=%s\n", "", snap.LastError)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
