// Package housekeeping runs the layout refresh outside request handling:
// on a schedule inside serve, or once from the CLI.
package housekeeping

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/archmap/archmap/internal/layoutsync"
)

// Runner executes a single housekeeping pass.
type Runner interface {
	RunOnce(context.Context) error
}

// ErrAlreadyRunning is returned by a try-lock runner when another process
// holds the refresh lock.
var ErrAlreadyRunning = errors.New("refresh is already running")

// Refresher is the part of layoutsync.Service a refresh pass needs.
type Refresher interface {
	RefreshAll(ctx context.Context) (layoutsync.RefreshResult, error)
}

// RefreshRunner runs RefreshAll and logs its counters.
type RefreshRunner struct {
	Service Refresher
	Logger  *slog.Logger
}

func (r *RefreshRunner) RunOnce(ctx context.Context) error {
	if r == nil || r.Service == nil {
		return errors.New("refresh runner is not configured")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res, err := r.Service.RefreshAll(ctx)
	if err != nil {
		return err
	}
	attrs := []any{
		"streams", res.Streams,
		"duplicates_removed", res.DuplicatesRemoved,
		"invalid_removed", res.InvalidRemoved,
		"edges_synced", res.EdgesSynced,
		"colors_synced", res.ColorsSynced,
		"nodes_pruned", res.NodesPruned,
	}
	if len(res.FailedPasses) > 0 {
		logger.Warn("refresh finished with failed passes", append(attrs, "failed_passes", strings.Join(res.FailedPasses, ","))...)
		return nil
	}
	logger.Info("refresh finished", attrs...)
	return nil
}
