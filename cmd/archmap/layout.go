package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/archmap/archmap/internal/config"
	"github.com/archmap/archmap/internal/diagram"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Manage saved diagram layouts.",
}

type layoutResetOptions struct {
	stream string
	app    int64
}

var layoutResetOpts layoutResetOptions

var layoutResetCmd = &cobra.Command{
	Use:         "reset",
	Short:       "Delete a saved layout so the next read reseeds it.",
	Args:        cobra.NoArgs,
	Annotations: structured,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := layoutResetOpts.key()
		if err != nil {
			return err
		}
		return commandFailed(runLayoutReset(key))
	},
}

func init() {
	layoutResetCmd.Flags().StringVar(&layoutResetOpts.stream, "stream", "", "stream name")
	layoutResetCmd.Flags().Int64Var(&layoutResetOpts.app, "app", 0, "app id")
	layoutCmd.AddCommand(layoutResetCmd)
}

func (o layoutResetOptions) key() (diagram.LayoutKey, error) {
	stream := strings.TrimSpace(o.stream)
	switch {
	case stream != "" && o.app != 0:
		return diagram.LayoutKey{}, errors.New("--stream and --app are mutually exclusive")
	case stream != "":
		return diagram.ParseLayoutKey(string(diagram.LayoutKindStream), stream)
	case o.app != 0:
		return diagram.ParseLayoutKey(string(diagram.LayoutKindApp), strconv.FormatInt(o.app, 10))
	default:
		return diagram.LayoutKey{}, errors.New("one of --stream or --app is required")
	}
}

func runLayoutReset(key diagram.LayoutKey) error {
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

	deleted, err := newService(pool, 0, logger).ResetLayout(ctx, key)
	if err != nil {
		return err
	}
	logger.Info("layout reset", "layout_kind", key.Kind, "layout_key", key.Key, "deleted", deleted)
	return nil
}
