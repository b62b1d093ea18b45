package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/todoman/internal/config"
	"github.com/hitoshi/todoman/internal/database"
	"github.com/hitoshi/todoman/internal/handler"
	"github.com/hitoshi/todoman/internal/repository"
)

// store はSTORE_DRIVERに応じて構築したリポジトリ群。
type store struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	health handler.HealthChecker // memoryの場合はnil
	close  func() error
}

// openStore は設定されたドライバーでストアを開く。
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, cfg.DatabaseURL, database.PostgresPoolConfig{})
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established",
			slog.String("driver", cfg.StoreDriver),
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return &store{
			users:  repository.NewPostgresUserRepo(db),
			tasks:  repository.NewPostgresTaskRepo(db),
			health: db,
			close:  db.Close,
		}, nil

	case config.StoreDriverSQLite:
		pool, err := database.OpenSQLite(ctx, database.SQLiteConfig{
			Path:     cfg.SQLitePath,
			PoolSize: cfg.SQLitePoolSize,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info("sqlite store opened",
			slog.String("path", cfg.SQLitePath),
			slog.Int("pool_size", cfg.SQLitePoolSize),
		)
		return &store{
			users:  repository.NewSQLiteUserRepo(pool),
			tasks:  repository.NewSQLiteTaskRepo(pool),
			health: pool,
			close:  pool.Close,
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &store{
			users: repository.NewMemoryUserRepo(),
			tasks: repository.NewMemoryTaskRepo(),
			close: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
	}
}
