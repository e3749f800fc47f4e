// Package main is the entry point for the cxfintech CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MekdelawitGebre/customer-experience-fintech/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cxfintech",
		Short: "Bank app review analytics",
		Long: `cxfintech scrapes Google Play reviews of Ethiopian bank apps, cleans them,
labels sentiment and themes, stores them in a relational database and serves
an analytics dashboard.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(scrapeCmd())
	cmd.AddCommand(cleanCmd())
	cmd.AddCommand(analyzeCmd())
	cmd.AddCommand(insertCmd())
	cmd.AddCommand(runCmd())
	cmd.AddCommand(schemaCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(mcpCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func envFileFlag(cmd *cobra.Command, envFile *string) {
	cmd.Flags().StringVar(envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
}
