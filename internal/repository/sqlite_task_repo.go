package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/todoman/internal/model"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLiteTaskRepo はSQLiteを使用したタスクリポジトリ。
// 挿入順はAUTOINCREMENTのseq列で保持する。
type SQLiteTaskRepo struct {
	pool SQLiteConnPool
}

// NewSQLiteTaskRepo はSQLiteTaskRepoを生成する。
func NewSQLiteTaskRepo(pool SQLiteConnPool) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{pool: pool}
}

// ListByOwner は所有者のタスクをseq昇順で返す。
func (r *SQLiteTaskRepo) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite conn: %w", err)
	}
	defer r.pool.Put(conn)

	var tasks []*model.Task
	err = sqlitex.Execute(conn,
		`SELECT id, owner, title, done, created_at FROM tasks WHERE owner = ? ORDER BY seq ASC`,
		&sqlitex.ExecOptions{
			Args: []any{owner},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				createdAt, err := parseSQLiteTime(stmt.ColumnText(4))
				if err != nil {
					return err
				}
				tasks = append(tasks, &model.Task{
					ID:        stmt.ColumnText(0),
					Owner:     stmt.ColumnText(1),
					Title:     stmt.ColumnText(2),
					Done:      stmt.ColumnInt(3) != 0,
					CreatedAt: createdAt,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成する。
func (r *SQLiteTaskRepo) Create(ctx context.Context, task *model.Task) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite conn: %w", err)
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO tasks (id, owner, title, done, created_at) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{task.ID, task.Owner, task.Title, boolToInt(task.Done), formatSQLiteTime(task.CreatedAt)},
		})
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update はタスクのtitleとdoneを更新する。
func (r *SQLiteTaskRepo) Update(ctx context.Context, task *model.Task) error {
	return r.execAffecting(ctx,
		`UPDATE tasks SET title = ?, done = ? WHERE id = ? AND owner = ?`,
		[]any{task.Title, boolToInt(task.Done), task.ID, task.Owner},
		"update",
	)
}

// Delete はタスクを削除する。
func (r *SQLiteTaskRepo) Delete(ctx context.Context, task *model.Task) error {
	return r.execAffecting(ctx,
		`DELETE FROM tasks WHERE id = ? AND owner = ?`,
		[]any{task.ID, task.Owner},
		"delete",
	)
}

// execAffecting は1行以上に影響する更新系クエリを実行する。
// 影響行数が0の場合はErrNotFoundを返す。
func (r *SQLiteTaskRepo) execAffecting(ctx context.Context, query string, args []any, op string) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite conn: %w", err)
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return fmt.Errorf("failed to %s task: %w", op, err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// compile-time interface check
var _ TaskRepository = (*SQLiteTaskRepo)(nil)
