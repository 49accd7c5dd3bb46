package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/usecase/notify"
	reportUC "github.com/fastygo/taskdesk/usecase/report"
)

var reportDryRun bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send the daily summary to the admin now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx, cfg, zapLogger)
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newBotClient(cfg, zapLogger)
		if err != nil {
			return err
		}
		reports := reportUC.New(store.Tasks, notify.NewDispatcher(client, cfg.Bot.AdminID, zapLogger), zapLogger)

		now := time.Now()
		if reportDryRun {
			summary, err := reports.Build(ctx, now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.Text(cfg.Report.At))
			return nil
		}

		summary, delivery, err := reports.Send(ctx, now, cfg.Report.At)
		if err != nil {
			return err
		}
		if delivery.Failed() {
			zapLogger.Warn("report delivery failed", zap.Error(delivery.Err))
			return fmt.Errorf("report not delivered: %w", delivery.Err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary.Text(cfg.Report.At))
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "print the summary without sending it")
}
