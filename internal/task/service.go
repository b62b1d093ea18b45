// Package task はユーザーが所有するタスクの一覧・追加・完了・削除を提供する。
//
// タスクは所有者のタスク一覧内の0始まりの位置で指定する。
// 位置は呼び出しのたびにストアから一覧を取得し直して解決するため、
// 先行するタスクが削除されると後続タスクの位置は1つずつ前にずれる。
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// Service はタスク操作の所有者チェックを行う。
// 操作対象は常に認証済みユーザー自身のタスクに限られる。
type Service struct {
	taskRepo repository.TaskRepository
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskRepository) *Service {
	return &Service{
		taskRepo: taskRepo,
		now:      time.Now,
	}
}

// ListOwned はユーザーのタスクを挿入順で返す。
func (s *Service) ListOwned(ctx context.Context, user *model.User) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListByOwner(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	return tasks, nil
}

// AddTask はユーザーのタスク一覧の末尾にタスクを追加する。
// 同じタイトルのタスクも追加できる。
func (s *Service) AddTask(ctx context.Context, user *model.User, title string, done bool) (*model.Task, error) {
	t := &model.Task{
		ID:        uuid.New().String(),
		Owner:     user.Username,
		Title:     title,
		Done:      done,
		CreatedAt: s.now(),
	}
	if err := s.taskRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	slog.Debug("task added",
		slog.String("username", user.Username),
		slog.String("task_id", t.ID),
	)
	return t, nil
}

// CompleteAt は一覧のindex番目のタスクを完了にして返す。
// 範囲外の場合はErrIndexOutOfRangeを返し、何も変更しない。
func (s *Service) CompleteAt(ctx context.Context, user *model.User, index int) (*model.Task, error) {
	t, err := s.resolve(ctx, user, index)
	if err != nil {
		return nil, err
	}

	t.Done = true
	if err := s.taskRepo.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.WrapError(model.ErrIndexOutOfRange, err)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

// DeleteAt は一覧のindex番目のタスクを削除する。
// 範囲外の場合はErrIndexOutOfRangeを返し、何も変更しない。
func (s *Service) DeleteAt(ctx context.Context, user *model.User, index int) error {
	t, err := s.resolve(ctx, user, index)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.WrapError(model.ErrIndexOutOfRange, err)
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	slog.Debug("task deleted",
		slog.String("username", user.Username),
		slog.String("task_id", t.ID),
	)
	return nil
}

// resolve はユーザーの現在のタスク一覧からindex番目のタスクを取り出す。
func (s *Service) resolve(ctx context.Context, user *model.User, index int) (*model.Task, error) {
	tasks, err := s.ListOwned(ctx, user)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(tasks) {
		return nil, model.ErrIndexOutOfRange
	}
	return tasks[index], nil
}
