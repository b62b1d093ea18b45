package repository

import (
	"context"
	"sync"

	"github.com/hitoshi/todoman/internal/model"
)

// MemoryUserRepo はプロセス内メモリに保持するユーザーリポジトリ。
// 開発用とテスト用。プロセス終了で内容は失われる。
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*model.User)}
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// Create はユーザーを作成する。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return ErrDuplicateUsername
	}
	cp := *user
	r.users[user.Username] = &cp
	return nil
}

// MemoryTaskRepo はプロセス内メモリに保持するタスクリポジトリ。
// 所有者ごとのスライスが挿入順を表す。
type MemoryTaskRepo struct {
	mu    sync.RWMutex
	tasks map[string][]*model.Task
}

// NewMemoryTaskRepo はMemoryTaskRepoを生成する。
func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{tasks: make(map[string][]*model.Task)}
}

// ListByOwner は所有者のタスクを挿入順で返す。返却値は内部状態のコピー。
func (r *MemoryTaskRepo) ListByOwner(_ context.Context, owner string) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.tasks[owner]
	out := make([]*model.Task, 0, len(src))
	for _, t := range src {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// Create はタスクを所有者の一覧の末尾に追加する。
func (r *MemoryTaskRepo) Create(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *task
	r.tasks[task.Owner] = append(r.tasks[task.Owner], &cp)
	return nil
}

// Update はタスクのtitleとdoneを更新する。
func (r *MemoryTaskRepo) Update(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(task)
	if i < 0 {
		return ErrNotFound
	}
	stored := r.tasks[task.Owner][i]
	stored.Title = task.Title
	stored.Done = task.Done
	return nil
}

// Delete はタスクを削除する。後続タスクの位置は1つずつ前に詰まる。
func (r *MemoryTaskRepo) Delete(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(task)
	if i < 0 {
		return ErrNotFound
	}
	list := r.tasks[task.Owner]
	r.tasks[task.Owner] = append(list[:i:i], list[i+1:]...)
	return nil
}

// indexOf は呼び出し側でロックを保持していること。
func (r *MemoryTaskRepo) indexOf(task *model.Task) int {
	for i, t := range r.tasks[task.Owner] {
		if t.ID == task.ID {
			return i
		}
	}
	return -1
}

// compile-time interface check
var (
	_ UserRepository = (*MemoryUserRepo)(nil)
	_ TaskRepository = (*MemoryTaskRepo)(nil)
)
