// Package cmd implements the qtctl operator CLI.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quantumtrust/internal/app"
	"quantumtrust/internal/platform/config"
	"quantumtrust/internal/platform/logger"
)

var (
	// Global flags
	outputFormat string
	envFile      string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "qtctl",
	Short: "Operator CLI for the QuantumTrust DID registry",
	Long: `qtctl runs maintenance tasks against the QuantumTrust database:
bootstrapping the schema, sweeping expired DIDs and reading the audit ledger.

Connection settings come from the same environment variables as the server,
optionally seeded from a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional env file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration for one-shot commands. The audit relay is
// never started from the CLI.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg.Kafka.Brokers = nil
	cfg.Log.Level = logLevel
	return cfg, logger.NewWithWriter(os.Stderr, cfg.Log), nil
}

func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, log, prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return a, nil
}

// formatOutput handles output formatting based on the --output flag.
// It reports false for table output, which each command renders itself.
func formatOutput(w io.Writer, data any) (bool, error) {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(data)
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return true, err
		}
		_, err = w.Write(out)
		return true, err
	case "table":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q", outputFormat)
	}
}
