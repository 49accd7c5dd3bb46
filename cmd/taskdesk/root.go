package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/internal/config"
	"github.com/fastygo/taskdesk/pkg/logger"
)

var version = "0.1.0"

var (
	cfg       *config.Config
	zapLogger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "taskdesk",
	Short:         "Telegram task desk for one admin and their employees",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		loc, err := loaded.Location()
		if err != nil {
			return err
		}
		time.Local = loc

		built, err := logger.New(logger.Config{
			Level:    loaded.Logger.Level,
			Encoding: loaded.Logger.Encoding,
		})
		if err != nil {
			return fmt.Errorf("logger error: %w", err)
		}
		cfg, zapLogger = loaded, built.With(zap.String("app", loaded.AppName), zap.String("env", loaded.Environment))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, reportCmd, tokenCmd)
}
