package database

import (
	"context"
	"path/filepath"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

func openTestSQLite(t *testing.T) *SQLitePool {
	t.Helper()
	pool, err := OpenSQLite(context.Background(), SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "todoman.db"),
		PoolSize: 2,
	})
	if err != nil {
		t.Fatalf("OpenSQLite に失敗: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), SQLiteConfig{}); err == nil {
		t.Fatal("Pathが空の場合にエラーが返されるべき")
	}
}

func TestOpenSQLite_CreatesSchema(t *testing.T) {
	pool := openTestSQLite(t)
	ctx := context.Background()

	conn, err := pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take に失敗: %v", err)
	}
	defer pool.Put(conn)

	var tables []string
	err = sqlitex.Execute(conn,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'tasks') ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tables = append(tables, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		t.Fatalf("テーブル一覧の取得に失敗: %v", err)
	}
	if len(tables) != 2 || tables[0] != "tasks" || tables[1] != "users" {
		t.Errorf("tables = %v, want [tasks users]", tables)
	}
}

func TestOpenSQLite_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todoman.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		pool, err := OpenSQLite(ctx, SQLiteConfig{Path: path, PoolSize: 1})
		if err != nil {
			t.Fatalf("%d回目の OpenSQLite に失敗: %v", i+1, err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("Close に失敗: %v", err)
		}
	}
}

func TestSQLitePool_ForeignKeysEnforced(t *testing.T) {
	pool := openTestSQLite(t)
	ctx := context.Background()

	conn, err := pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take に失敗: %v", err)
	}
	defer pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO tasks (id, owner, title, done, created_at) VALUES ('t1', 'nobody', 'orphan', 0, '2026-01-01T00:00:00Z')",
		nil)
	if err == nil {
		t.Error("存在しないownerのタスク挿入がエラーにならなかった")
	}
}

func TestSQLitePool_PingContext(t *testing.T) {
	pool := openTestSQLite(t)
	if err := pool.PingContext(context.Background()); err != nil {
		t.Errorf("PingContext がエラーを返した: %v", err)
	}
}
