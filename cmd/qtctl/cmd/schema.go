package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quantumtrust/internal/platform/postgres"
)

func init() {
	schemaCmd.AddCommand(schemaApplyCmd)
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the database schema",
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create tables, constraints and indexes if missing",
	Long: `Create the users, did and audit_logs tables with their constraints and
indexes. Safe to run repeatedly; existing objects are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := postgres.ApplySchema(cmd.Context(), a.DB); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}
