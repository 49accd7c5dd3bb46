package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastygo/taskdesk/internal/config"
	pgInfra "github.com/fastygo/taskdesk/internal/infrastructure/postgres"
	"github.com/fastygo/taskdesk/internal/infrastructure/sqlite"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Manage the record store schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "up"
		if len(args) == 1 {
			action = args[0]
		}

		if cfg.Storage.Driver == config.DriverSQLite {
			if action != "up" {
				return fmt.Errorf("migrate %s is only supported for postgres", action)
			}
			db, err := sqlite.Open(cmd.Context(), cfg.Storage.SQLitePath, zapLogger)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema is up to date: %s\n", cfg.Storage.SQLitePath)
			return nil
		}

		mg, err := pgInfra.NewMigrator(cfg.Database, cfg.Migrations.Path, zapLogger)
		if err != nil {
			return err
		}
		defer mg.Close()

		switch action {
		case "up":
			if err := mg.Up(); err != nil {
				return err
			}
		case "down":
			if err := mg.Down(migrateSteps); err != nil {
				return err
			}
		}

		version, dirty, ok, err := mg.Version()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back with down")
}
