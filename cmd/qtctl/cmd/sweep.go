package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepNow string

func init() {
	sweepCmd.Flags().StringVar(&sweepNow, "now", "", "Sweep as of this RFC3339 time (default: current time)")
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire every live DID whose expiry has passed",
	Long: `Expire every pending or active DID with expires_at at or before --now.
Each expiry is committed with its audit entry on its own; re-running the
sweep is safe and never logs a DID twice.

Examples:
  qtctl sweep
  qtctl sweep --now 2026-01-01T00:00:00Z -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now, err := parseNow(sweepNow, time.Now())
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Lifecycle.SweepExpired(cmd.Context(), now)
		if err != nil {
			return fmt.Errorf("sweep stopped after %d expired, %d skipped: %w", result.Expired, result.Skipped, err)
		}
		if handled, err := formatOutput(cmd.OutOrStdout(), result); handled {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Expired: %d\nSkipped: %d\n", result.Expired, result.Skipped)
		return nil
	},
}

func parseNow(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now must be RFC3339: %w", err)
	}
	return t.UTC(), nil
}
