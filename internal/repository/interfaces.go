// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/todoman/internal/model"
)

var (
	// ErrDuplicateUsername はユーザー名の一意制約違反を表す。
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrNotFound は更新・削除対象の行が存在しないことを表す。
	ErrNotFound = errors.New("record not found")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByUsername はユーザー名の完全一致でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// 同じユーザー名が既に存在する場合はErrDuplicateUsernameを返し、既存行は変更しない。
	Create(ctx context.Context, user *model.User) error
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// ListByOwner は所有者のタスクを挿入順で返す。
	// 呼び出しごとにストアから取得し直し、キャッシュは持たない。
	ListByOwner(ctx context.Context, owner string) ([]*model.Task, error)

	// Create はタスクを所有者のタスク一覧の末尾に追加する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクのtitleとdoneを更新する。
	// IDと所有者が一致する行がない場合はErrNotFoundを返す。
	Update(ctx context.Context, task *model.Task) error

	// Delete はタスクを削除する。
	// IDと所有者が一致する行がない場合はErrNotFoundを返す。
	Delete(ctx context.Context, task *model.Task) error
}
