package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Import and reconcile run pending migrations automatically; this command
exists to apply them explicitly, for example before a deployment.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	slog.Info("Running database migrations",
		"database", application.cfg.DatabasePath,
		"target_version", storage.ExpectedSchemaVersion)

	if err := application.store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("Database schema is up to date")
	return nil
}
