package app

import (
	"context"
	"fmt"

	"go-stock-resi/internal/config"
	"go-stock-resi/internal/repository"
	"go-stock-resi/internal/repository/local"
	"go-stock-resi/internal/repository/postgres"
	"go-stock-resi/pkg/database"

	"go.uber.org/zap"
)

// OpenBackend connects the storage backend named by the configuration. The
// choice is made once; nothing downstream checks which one is in use.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendRemote:
		dsn := cfg.DSN()
		db, err := database.ConnectPostgres(dsn, logger)
		if err != nil {
			return nil, err
		}
		// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
		if err := postgres.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.NewBackend(db, dsn, logger), nil

	case config.BackendLocal:
		rdb, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return nil, err
		}
		return local.NewBackend(rdb, cfg.StorageKeyPrefix, logger), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
