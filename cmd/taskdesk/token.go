package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	authUC "github.com/fastygo/taskdesk/usecase/auth"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin token for the HTTP read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx, cfg, zapLogger)
		if err != nil {
			return err
		}
		defer store.Close()

		auth := authUC.New(store.Users, authUC.Config{
			Secret:  cfg.JWT.Secret,
			Issuer:  cfg.JWT.Issuer,
			TTL:     cfg.JWT.TTL,
			AdminID: cfg.Bot.AdminID,
		}, zapLogger)

		token, expires, err := auth.IssueToken(ctx, cfg.Bot.AdminID, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expires.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to JWT_TTL)")
}
