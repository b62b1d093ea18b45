package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/todoman/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// 挿入順はBIGSERIALのseq列で保持する。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// ListByOwner は所有者のタスクをseq昇順で返す。
func (r *PostgresTaskRepo) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, title, done, created_at
		 FROM tasks
		 WHERE owner = $1
		 ORDER BY seq ASC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t := &model.Task{}
		if err := rows.Scan(&t.ID, &t.Owner, &t.Title, &t.Done, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", err)
	}

	return tasks, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, owner, title, done, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		task.ID, task.Owner, task.Title, task.Done, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update はタスクのtitleとdoneを更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $1, done = $2 WHERE id = $3 AND owner = $4`,
		task.Title, task.Done, task.ID, task.Owner,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return checkRowsAffected(result)
}

// Delete はタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, task *model.Task) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND owner = $2`,
		task.ID, task.Owner,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return checkRowsAffected(result)
}

// checkRowsAffected は影響行数が0の場合にErrNotFoundを返す。
func checkRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
