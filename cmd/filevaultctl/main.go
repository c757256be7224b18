package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"filevault/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "filevaultctl",
	Short: "Operator tooling for filevault",
	Long: `Administrative commands that talk to the filevault database directly.

Examples:
  filevaultctl migrate up
  filevaultctl migrate down --steps 1
  filevaultctl createsuperuser --email admin@example.com --password s3cret
  filevaultctl reconcile`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
