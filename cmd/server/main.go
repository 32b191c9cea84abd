package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"quantumtrust/internal/app"
	"quantumtrust/internal/lifecycle"
	"quantumtrust/internal/platform/config"
	"quantumtrust/internal/platform/httpserver"
	"quantumtrust/internal/platform/logger"
	"quantumtrust/internal/platform/metrics"
	"quantumtrust/internal/platform/postgres"
	httptransport "quantumtrust/internal/transport/http"
)

// main wires dependencies and runs the HTTP server, the expiry sweeper and the
// audit relay until SIGINT/SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("shutdown cleanup failed", "error", err)
		}
	}()

	if err := postgres.ApplySchema(ctx, a.DB); err != nil {
		return err
	}
	created, err := a.Lifecycle.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		log.InfoContext(ctx, "admin account created", "username", cfg.Admin.Username)
	}

	health := map[string]httptransport.HealthCheck{"postgres": a.DB.PingContext}
	if a.Producer != nil {
		health["kafka"] = a.Producer.Health
	}
	if a.Redis != nil {
		health["redis"] = a.Redis.Health
	}
	router := httptransport.NewRouter(httptransport.Config{
		APIPrefix: cfg.APIPrefix,
		Users:     a.Lifecycle,
		DIDs:      a.Lifecycle,
		Audit:     a.Ledger,
		Logger:    log,
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
		Health:    health,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	log.InfoContext(ctx, "starting", "app", cfg.AppName, "addr", cfg.Server.Addr, "api_prefix", cfg.APIPrefix)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if cfg.Lifecycle.SweepInterval > 0 {
		g.Go(func() error {
			runSweeper(gctx, a.Lifecycle, cfg.Lifecycle.SweepInterval, log)
			return nil
		})
	}
	if a.Relay != nil {
		g.Go(func() error {
			return a.Relay.Run(gctx)
		})
	}
	return g.Wait()
}

// runSweeper expires due DIDs on every tick. A failed sweep is logged and
// retried on the next tick; completed expiries from it stay committed.
func runSweeper(ctx context.Context, svc *lifecycle.Service, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.InfoContext(ctx, "did expiry sweeper started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			result, err := svc.SweepExpired(ctx, t.UTC())
			if err != nil {
				log.ErrorContext(ctx, "did expiry sweep failed",
					"expired", result.Expired, "skipped", result.Skipped, "error", err)
				continue
			}
			if result.Expired > 0 || result.Skipped > 0 {
				log.InfoContext(ctx, "did expiry sweep finished",
					"expired", result.Expired, "skipped", result.Skipped)
			}
		}
	}
}
