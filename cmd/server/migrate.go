package main

import (
    "errors"
    "log/slog"

    "github.com/spf13/cobra"

    pg "deepscan/internal/adapters/postgres"
)

var migrateCmd = &cobra.Command{
    Use:   "migrate",
    Short: "Apply database migrations and exit",
    RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
    cfg := loadConfig()
    if cfg.DatabaseURL == "" {
        return errors.New("DATABASE_URL is required for migrations")
    }
    db, err := pg.Connect(cmd.Context(), cfg.DatabaseURL, 2)
    if err != nil {
        return err
    }
    defer db.Close()
    if err := db.Migrate(cmd.Context()); err != nil {
        return err
    }
    slog.Info("migrations applied")
    return nil
}
