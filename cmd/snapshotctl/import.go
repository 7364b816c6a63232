package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	importDate      string
	importOverwrite bool
)

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Parse a pasted table and save it as a snapshot",
	Long: `Parse a tab-separated table copied from the analytics dashboard and save it.

The date defaults to today. An existing snapshot for the same date is kept
unless --overwrite is given.

Examples:
  snapshotctl import paste.tsv
  snapshotctl import --date 2025-03-01 paste.tsv
  pbpaste | snapshotctl import --overwrite -`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var previewCmd = &cobra.Command{
	Use:   "preview <file|->",
	Short: "Parse a pasted table without saving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(previewCmd)

	importCmd.Flags().StringVar(&importDate, "date", "", "Snapshot date (YYYY-MM-DD, default today)")
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "Replace an existing snapshot for the date")
	previewCmd.Flags().StringVar(&importDate, "date", "", "Snapshot date (YYYY-MM-DD, default today)")
}

func runImport(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	result := svc.Import(cmd.Context(), text, importDate, importOverwrite)

	out := cmd.OutOrStdout()
	if outputJSON {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if result.Success {
			fmt.Fprintf(out, "Saved snapshot %s with %d rows\n", result.Snapshot.SnapshotDate, len(result.Snapshot.Data))
		}
	}

	if !result.Success {
		if result.Duplicate {
			return fmt.Errorf("%s (use --overwrite to replace it)", result.Error)
		}
		if len(result.Details) > 0 {
			return fmt.Errorf("%s: %s", result.Error, strings.Join(result.Details, "; "))
		}
		return fmt.Errorf("%s", result.Error)
	}

	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	result := svc.Preview(text, importDate)

	out := cmd.OutOrStdout()
	if outputJSON {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if result.Success {
			fmt.Fprintf(out, "Snapshot %s: %d rows\n", result.Snapshot.SnapshotDate, len(result.Snapshot.Data))
			for _, row := range result.Snapshot.Data {
				fmt.Fprintf(out, "  %s\t%d\n", row.Title, row.Views)
			}
		}
	}

	if !result.Success {
		return fmt.Errorf("parse failed: %s", strings.Join(result.Errors, "; "))
	}
	return nil
}
