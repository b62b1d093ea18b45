package database

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// defaultSQLitePoolSize はPoolSize未指定時の接続数。
const defaultSQLitePoolSize = 4

// sqliteSchema はSQLiteストアのスキーマ。
// PostgreSQLのマイグレーション（migrations/）と同じ列構成を持つ。
// 日時はRFC3339Nano文字列、真偽値は0/1で保持する。
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	owner      TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	done       INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner_seq ON tasks(owner, seq);
`

// SQLiteConfig はSQLite接続プールの設定を保持する。
type SQLiteConfig struct {
	Path     string // データベースファイルのパス。":memory:" の場合はPoolSizeを1にすること
	PoolSize int
	Logger   *slog.Logger
}

// SQLitePool は固定サイズのSQLite接続プール。
// 接続は並行利用できないため、各処理はTakeで借りてPutで返す。
type SQLitePool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// OpenSQLite はSQLite接続プールを開き、スキーマを作成する。
func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLitePool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultSQLitePoolSize
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", cfg.Path, err)
	}

	p := &SQLitePool{inner: inner, logger: logger, path: cfg.Path}

	if err := p.ensureSchema(ctx); err != nil {
		inner.Close()
		return nil, err
	}

	logger.Info("sqlite pool opened",
		slog.String("path", cfg.Path),
		slog.Int("pool_size", poolSize),
	)
	return p, nil
}

// Take は接続を借りる。呼び出し側は必ずPutで返却すること。
func (p *SQLitePool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: take: %w", err)
	}
	return conn, nil
}

// Put は接続をプールに返却する。nilは無視される。
func (p *SQLitePool) Put(conn *sqlite.Conn) {
	if conn == nil {
		return
	}
	p.inner.Put(conn)
}

// PingContext は接続を1つ借りて疎通を確認する。
func (p *SQLitePool) PingContext(ctx context.Context) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)

	if err := sqlitex.ExecuteTransient(conn, "SELECT 1", nil); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close は全接続を閉じる。貸し出し中の接続が返却されるまでブロックする。
func (p *SQLitePool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error",
			slog.String("path", p.path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("sqlite: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", slog.String("path", p.path))
	return nil
}

func (p *SQLitePool) ensureSchema(ctx context.Context) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)

	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("sqlite: creating schema: %w", err)
	}
	return nil
}

// prepareSQLiteConn は接続ごとに一度だけPRAGMAを適用する。
func prepareSQLiteConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}
