package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charlesng35/authflow/internal/app/maintenance"
	"github.com/charlesng35/authflow/pkg/logger"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() // best effort

	accounts, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore(ctx) }()

	cmd.Println("Running migrations...")
	if err := accounts.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	log.Info("schema up to date")
	cmd.Println("Migrations completed successfully")
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadRuntimeConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() // best effort

	accounts, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore(ctx) }()

	cleaner, err := maintenance.NewCleaner(accounts)
	if err != nil {
		return err
	}

	stats, err := cleaner.RunOnce(ctx)
	cmd.Printf("Cleared %d verification codes and %d reset tokens\n", stats.VerificationCodes, stats.ResetTokens)
	return err
}
