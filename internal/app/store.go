package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Git-me-Harish/Video-KYC/internal/auth"
	"github.com/Git-me-Harish/Video-KYC/internal/database"
	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

// OpenUserStore connects the credential store selected by STORE_DRIVER and,
// when migrate is true, applies pending schema migrations. The returned func
// releases the connection.
func OpenUserStore(ctx context.Context, cfg *Config, logger *slog.Logger, migrate bool) (auth.Repository, func(), error) {
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			applied, err := database.MigratePool(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			logger.Info("schema migrated", slog.String("driver", cfg.StoreDriver), slog.Int("applied", applied))
		}
		return auth.NewRepository(pool), pool.Close, nil
	case StoreDriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			applied, err := database.Migrate(ctx, db, database.DialectSQLite)
			if err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			logger.Info("schema migrated", slog.String("driver", cfg.StoreDriver), slog.Int("applied", applied))
		}
		return auth.NewSQLiteRepository(db), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

// OpenSessionStore builds the session backend selected by SESSION_STORE.
func OpenSessionStore(ctx context.Context, cfg *Config, logger *slog.Logger) (shared.SessionStore, func(), error) {
	switch cfg.SessionStore {
	case SessionStoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping", slog.Any("error", err))
		}
		return shared.NewRedisSessionStore(client), func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}, nil
	case SessionStoreMemory:
		store, err := shared.NewMemorySessionStore(cfg.SessionTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("memory session store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
}
