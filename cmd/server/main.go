package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"stagehand/internal/platform/config"
	"stagehand/internal/platform/httpserver"
	"stagehand/internal/platform/logger"
	"stagehand/pkg/requestcontext"
)

// main loads configuration, wires the ingestion services and supervises the
// HTTP server and background loops until a signal arrives.
func main() {
	configPath := flag.String("config", os.Getenv("STAGEHAND_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close(log)

	srv := httpserver.New(cfg.Server.Addr, app.router)
	system := requestcontext.NewAuditContext(requestcontext.SystemActor, cfg.Server.Application)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting stagehand", "addr", cfg.Server.Addr, "audit_sink", cfg.Audit.Sink)
		return httpserver.Serve(ctx, srv, cfg.Server.ShutdownGrace)
	})
	if cfg.Retention.SweepInterval > 0 {
		g.Go(func() error {
			return ignoreCanceled(app.sweeper.Start(ctx, system, cfg.Retention.SweepInterval, cfg.Retention.Days))
		})
	}
	if cfg.Ingest.RecoveryInterval > 0 {
		g.Go(func() error {
			return ignoreCanceled(app.recovery.Start(ctx, system, cfg.Ingest.RecoveryInterval))
		})
	}
	if app.auditConsumer != nil {
		g.Go(func() error {
			return ignoreCanceled(app.auditConsumer.Run(ctx))
		})
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
