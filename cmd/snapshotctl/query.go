package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshot dates, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <date|latest>",
	Short: "Show the rows of one snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statsCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	dates, err := svc.ListDates(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, dates)
	}

	if len(dates) == 0 {
		fmt.Fprintln(out, "No snapshots stored")
		return nil
	}
	for _, date := range dates {
		fmt.Fprintln(out, date)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	var snapshot *models.Snapshot
	if args[0] == "latest" {
		snapshot, err = svc.GetLatest(cmd.Context())
	} else {
		snapshot, err = svc.Get(cmd.Context(), args[0])
	}
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, snapshot)
	}

	fmt.Fprintf(out, "Snapshot %s (captured %s, %d rows)\n",
		snapshot.SnapshotDate,
		snapshot.CapturedAt().UTC().Format("2006-01-02 15:04:05 MST"),
		len(snapshot.Data),
	)
	for _, row := range snapshot.Data {
		fmt.Fprintf(out, "  %s\tviews=%s\timpressions=%s\tctr=%s\n",
			row.Title,
			humanize.Comma(row.Views),
			formatOptionalInt(row.Impressions),
			formatOptionalPercent(row.CTR),
		)
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := svc.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, stats)
	}

	fmt.Fprintf(out, "Snapshots: %d\n", stats.TotalSnapshots)
	if stats.TotalSnapshots > 0 {
		fmt.Fprintf(out, "Oldest:    %s\n", stats.OldestDate)
		fmt.Fprintf(out, "Latest:    %s\n", stats.LatestDate)
	}
	fmt.Fprintf(out, "Storage:   %s\n", humanize.Bytes(uint64(max(stats.StorageUsageBytes, 0)))) //nolint:gosec // clamped non-negative
	return nil
}

func formatOptionalInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return humanize.Comma(*v)
}

func formatOptionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v*100, 'f', 2, 64) + "%"
}
