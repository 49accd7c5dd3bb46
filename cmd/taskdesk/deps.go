package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/taskdesk/internal/config"
	"github.com/fastygo/taskdesk/internal/gateway/telegram"
	pgInfra "github.com/fastygo/taskdesk/internal/infrastructure/postgres"
	"github.com/fastygo/taskdesk/internal/infrastructure/sqlite"
	"github.com/fastygo/taskdesk/repository"
	"github.com/fastygo/taskdesk/repository/postgres"
	sqliterepo "github.com/fastygo/taskdesk/repository/sqlite"
)

// openStore connects the configured record store and makes sure the admin row exists.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repository.Store, error) {
	var store *repository.Store
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, log); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		store = postgres.NewStore(pool)
	default:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		store = sqliterepo.NewStore(db)
	}

	if err := store.Users.EnsureAdmin(ctx, cfg.Bot.AdminID); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	return store, nil
}

func newBotClient(cfg *config.Config, log *zap.Logger) (*telegram.Client, error) {
	return telegram.NewClient(telegram.Config{
		Token:   cfg.Bot.Token,
		APIURL:  cfg.Bot.APIURL,
		Timeout: cfg.Bot.SendTimeout,
	}, log.Named("telegram"))
}
