package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"filevault/internal/database"
	"filevault/internal/repository"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rewrite upload counters that disagree with stored files",
	RunE:  runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, "filevaultctl")
	if err != nil {
		return err
	}
	defer pool.Close()

	fixed, err := repository.NewUserRepository(pool).ReconcileUploadCounts(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d user(s) corrected\n", fixed)
	return nil
}
