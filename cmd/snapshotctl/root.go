// Command snapshotctl manages performance snapshots directly against the configured store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
	"github.com/ad-tracker/performance-snapshots-go/internal/metrics"
	"github.com/ad-tracker/performance-snapshots-go/internal/parser"
	"github.com/ad-tracker/performance-snapshots-go/internal/service"
	"github.com/ad-tracker/performance-snapshots-go/internal/store"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

var outputJSON bool

var rootCmd = &cobra.Command{
	Use:   "snapshotctl",
	Short: "Manage pasted performance snapshots",
	Long: `snapshotctl imports, inspects and removes daily performance snapshots.

It reads config.yaml (or APP_* environment variables) like the server does
and talks to the configured store backend directly.`,
	SilenceUsage: true,
}

// openService builds a snapshot service on the configured store. Tests replace it.
var openService = func(ctx context.Context) (*service.SnapshotService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}

	st, closeStore, err := store.Open(ctx, cfg, metrics.Noop())
	if err != nil {
		return nil, nil, err
	}

	publisher, err := service.NewEventPublisher(&cfg.RabbitMQ)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("connect event publisher: %w", err)
	}

	svc := service.NewSnapshotService(st, parser.New(cfg.Snapshot.MaxPasteSize), nil, publisher, nil)

	cleanup := func() {
		_ = publisher.Close()
		closeStore()
		_ = logger.Sync()
	}

	return svc, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(raw), nil
}
