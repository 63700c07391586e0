package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifier/internal/config"
	"github.com/spec-kit/ticket-notifier/internal/persistence"
	"github.com/spec-kit/ticket-notifier/internal/push"
	"github.com/spec-kit/ticket-notifier/internal/repository"
)

// openStore connects the registration store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		pool := pg.PoolHandle()
		return &repository.Store{
			Tokens:      repository.NewTokenRepository(pool),
			Memberships: repository.NewMembershipRepository(pool),
			Close:       func() error { pg.Close(); return nil },
			Ping:        pg.Ping,
		}, nil

	case config.StoreDriverRedis:
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return &repository.Store{
			Tokens:      repository.NewRedisTokenRepository(rdb.Client, cfg.Redis.KeyPrefix),
			Memberships: repository.NewRedisMembershipRepository(rdb.Client, cfg.Redis.KeyPrefix),
			Close:       rdb.Close,
			Ping:        rdb.Ping,
		}, nil

	case config.StoreDriverSQLite:
		db, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return &repository.Store{
			Tokens:      repository.NewSQLiteTokenRepository(db.DB),
			Memberships: repository.NewSQLiteMembershipRepository(db.DB),
			Close:       db.Close,
			Ping:        db.Ping,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// newGateway builds the push gateway selected by PUSH_PROVIDER.
func newGateway(ctx context.Context, cfg config.PushConfig, logger *zap.Logger) (push.Gateway, error) {
	switch cfg.Provider {
	case config.PushProviderFCM:
		return push.NewFCMGateway(ctx, cfg, logger)
	case config.PushProviderLog:
		logger.Warn("push provider is log: notifications are not delivered")
		return push.NewLogGateway(logger), nil
	}
	return nil, fmt.Errorf("unsupported push provider %q", cfg.Provider)
}
