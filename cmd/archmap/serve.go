package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/archmap/archmap/internal/config"
	"github.com/archmap/archmap/internal/housekeeping"
	httpapp "github.com/archmap/archmap/internal/http"
	"github.com/archmap/archmap/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the diagram HTTP API and the scheduled refresh.",
	Args:        cobra.NoArgs,
	Annotations: structured,
	RunE: func(cmd *cobra.Command, args []string) error {
		return commandFailed(runServe())
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := newService(pool, cfg.DiagramCacheTTL, logger)
	logger.Info("diagram cache", "enabled", svc.Cache.Enabled(), "ttl", cfg.DiagramCacheTTL.String())

	_, metricsErr := metrics.StartServer(ctx, cfg.MetricsAddr, logger)

	if cfg.RefreshInterval > 0 {
		scheduler := housekeeping.Scheduler{
			Runner: housekeeping.NewTryLockRunner(
				housekeeping.PGLocker{Pool: pool},
				housekeeping.RefreshLockKey,
				&housekeeping.RefreshRunner{Service: svc, Logger: logger},
			),
			Interval: cfg.RefreshInterval,
			Logger:   logger,
		}
		go scheduler.Run(ctx)
	}

	srv := httpapp.NewEchoServer(cfg, svc, logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(ctx, cfg.HTTPAddr, cfg.ShutdownTimeout)
	}()

	select {
	case err := <-serveErr:
		return err
	case err := <-metricsErr:
		stop()
		<-serveErr
		return err
	}
}
