package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/todoman/internal/model"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLiteConnPool はSQLite接続の貸し出しを行うプール。
// database.SQLitePool が実装する。
type SQLiteConnPool interface {
	Take(ctx context.Context) (*sqlite.Conn, error)
	Put(conn *sqlite.Conn)
}

// sqliteTimeLayout はSQLiteに日時を保存する際の書式。
const sqliteTimeLayout = time.RFC3339Nano

// SQLiteUserRepo はSQLiteを使用したユーザーリポジトリ。
type SQLiteUserRepo struct {
	pool SQLiteConnPool
}

// NewSQLiteUserRepo はSQLiteUserRepoを生成する。
func NewSQLiteUserRepo(pool SQLiteConnPool) *SQLiteUserRepo {
	return &SQLiteUserRepo{pool: pool}
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLiteUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite conn: %w", err)
	}
	defer r.pool.Put(conn)

	var user *model.User
	err = sqlitex.Execute(conn,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		&sqlitex.ExecOptions{
			Args: []any{username},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				createdAt, err := parseSQLiteTime(stmt.ColumnText(3))
				if err != nil {
					return err
				}
				user = &model.User{
					ID:           stmt.ColumnText(0),
					Username:     stmt.ColumnText(1),
					PasswordHash: stmt.ColumnText(2),
					CreatedAt:    createdAt,
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *SQLiteUserRepo) Create(ctx context.Context, user *model.User) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite conn: %w", err)
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{user.ID, user.Username, user.PasswordHash, formatSQLiteTime(user.CreatedAt)},
		})
	if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// compile-time interface check
var _ UserRepository = (*SQLiteUserRepo)(nil)
