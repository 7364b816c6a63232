package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var clearConfirmed bool

var deleteCmd = &cobra.Command{
	Use:   "delete <date>",
	Short: "Delete the snapshot for one date",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored snapshot",
	Long: `Delete every stored snapshot. This cannot be undone.

Example:
  snapshotctl clear --yes`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().BoolVar(&clearConfirmed, "yes", false, "Confirm deletion of all snapshots")
}

func runDelete(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	deleted, err := svc.Delete(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("no snapshot stored for %s", args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !clearConfirmed {
		return errors.New("refusing to delete all snapshots without --yes")
	}

	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.ClearAll(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "All snapshots deleted")
	return nil
}
