package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/archmap/archmap/internal/config"
	"github.com/archmap/archmap/internal/housekeeping"
	"github.com/archmap/archmap/internal/layoutsync"
)

type refreshOptions struct {
	stream string
	all    bool
	colors bool
}

var refreshOpts refreshOptions

var refreshCmd = &cobra.Command{
	Use:         "refresh",
	Short:       "Sweep integrations and reconcile saved stream layouts with the inventory.",
	Args:        cobra.NoArgs,
	Annotations: structured,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := refreshOpts.validate(); err != nil {
			return err
		}
		return commandFailed(runRefresh(refreshOpts))
	},
}

func init() {
	refreshCmd.Flags().StringVar(&refreshOpts.stream, "stream", "", "refresh one stream by name")
	refreshCmd.Flags().BoolVar(&refreshOpts.all, "all", false, "refresh every stream enabled for diagrams")
	refreshCmd.Flags().BoolVar(&refreshOpts.colors, "colors", false, "only recolor saved layouts from the current connection types")
}

func (o refreshOptions) validate() error {
	n := 0
	if strings.TrimSpace(o.stream) != "" {
		n++
	}
	if o.all {
		n++
	}
	if o.colors {
		n++
	}
	if n != 1 {
		return errors.New("exactly one of --stream, --all or --colors is required")
	}
	return nil
}

func runRefresh(opts refreshOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := newService(pool, 0, logger)

	if opts.colors {
		n, err := svc.ResyncColors(ctx)
		if err != nil {
			return err
		}
		logger.Info("colors resynced", "colors_synced", n)
		return nil
	}

	var res layoutsync.RefreshResult
	if opts.all {
		release, ok, err := housekeeping.PGLocker{Pool: pool}.TryLock(ctx, housekeeping.RefreshLockKey)
		if err != nil {
			return err
		}
		if !ok {
			return housekeeping.ErrAlreadyRunning
		}
		defer release()
		res, err = svc.RefreshAll(ctx)
		if err != nil {
			return err
		}
	} else {
		res, err = svc.RefreshStream(ctx, opts.stream)
	}
	if err != nil {
		return err
	}
	logRefresh(logger, res)
	if len(res.FailedPasses) > 0 {
		return &exitError{code: exitPartial, err: errors.New("refresh passes failed: " + strings.Join(res.FailedPasses, ", "))}
	}
	return nil
}

func logRefresh(logger *slog.Logger, res layoutsync.RefreshResult) {
	logger.Info("refresh complete",
		"streams", res.Streams,
		"duplicates_removed", res.DuplicatesRemoved,
		"invalid_removed", res.InvalidRemoved,
		"edges_synced", res.EdgesSynced,
		"colors_synced", res.ColorsSynced,
		"nodes_pruned", res.NodesPruned,
		"failed_passes", res.FailedPasses,
	)
}
