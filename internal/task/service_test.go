package task

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// --- モック定義 ---

type mockTaskRepo struct {
	listByOwnerFn func(ctx context.Context, owner string) ([]*model.Task, error)
	createFn      func(ctx context.Context, task *model.Task) error
	updateFn      func(ctx context.Context, task *model.Task) error
	deleteFn      func(ctx context.Context, task *model.Task) error
}

func (m *mockTaskRepo) ListByOwner(ctx context.Context, owner string) ([]*model.Task, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, owner)
	}
	return nil, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *model.Task) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, task *model.Task) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, task)
	}
	return nil
}

// --- ヘルパー ---

var (
	alice = &model.User{ID: "u-alice", Username: "alice"}
	bob   = &model.User{ID: "u-bob", Username: "bob"}
)

type taskView struct {
	title string
	done  bool
}

func snapshot(t *testing.T, svc *Service, user *model.User) []taskView {
	t.Helper()
	tasks, err := svc.ListOwned(context.Background(), user)
	if err != nil {
		t.Fatalf("ListOwned に失敗: %v", err)
	}
	out := make([]taskView, len(tasks))
	for i, task := range tasks {
		out[i] = taskView{title: task.Title, done: task.Done}
	}
	return out
}

func assertTasks(t *testing.T, got, want []taskView) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("tasks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tasks[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func mustAdd(t *testing.T, svc *Service, user *model.User, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := svc.AddTask(context.Background(), user, title, false); err != nil {
			t.Fatalf("AddTask(%q) に失敗: %v", title, err)
		}
	}
}

// --- テスト ---

func TestListOwned_EmptyIsNonNil(t *testing.T) {
	svc := NewService(repository.NewMemoryTaskRepo())

	tasks, err := svc.ListOwned(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListOwned に失敗: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("tasks = %v, want empty non-nil slice", tasks)
	}
}

func TestAddTask_AppendsInOrderAndAllowsDuplicates(t *testing.T) {
	svc := NewService(repository.NewMemoryTaskRepo())
	ctx := context.Background()

	mustAdd(t, svc, alice, "a", "a")
	created, err := svc.AddTask(ctx, alice, "b", true)
	if err != nil {
		t.Fatalf("AddTask に失敗: %v", err)
	}
	if created.Owner != "alice" || created.ID == "" {
		t.Errorf("created = %+v", created)
	}

	assertTasks(t, snapshot(t, svc, alice), []taskView{{"a", false}, {"a", false}, {"b", true}})
}

// TestPositionalScenario は完了・削除後に位置がずれることを検証する。
func TestPositionalScenario(t *testing.T) {
	svc := NewService(repository.NewMemoryTaskRepo())
	ctx := context.Background()

	mustAdd(t, svc, alice, "a", "b", "c")
	assertTasks(t, snapshot(t, svc, alice), []taskView{{"a", false}, {"b", false}, {"c", false}})

	completed, err := svc.CompleteAt(ctx, alice, 1)
	if err != nil {
		t.Fatalf("CompleteAt(1) に失敗: %v", err)
	}
	if completed.Title != "b" || !completed.Done {
		t.Errorf("completed = %+v, want done \"b\"", completed)
	}
	assertTasks(t, snapshot(t, svc, alice), []taskView{{"a", false}, {"b", true}, {"c", false}})

	if err := svc.DeleteAt(ctx, alice, 0); err != nil {
		t.Fatalf("DeleteAt(0) に失敗: %v", err)
	}
	assertTasks(t, snapshot(t, svc, alice), []taskView{{"b", true}, {"c", false}})

	// 削除前にindex 2だったcはindex 1に移動している
	if _, err := svc.CompleteAt(ctx, alice, 2); !errors.Is(err, model.ErrIndexOutOfRange) {
		t.Errorf("CompleteAt(2) err = %v, want ErrIndexOutOfRange", err)
	}
	assertTasks(t, snapshot(t, svc, alice), []taskView{{"b", true}, {"c", false}})
}

func TestOwnershipIsolation(t *testing.T) {
	svc := NewService(repository.NewMemoryTaskRepo())
	ctx := context.Background()

	mustAdd(t, svc, alice, "a", "b")

	assertTasks(t, snapshot(t, svc, bob), nil)

	if _, err := svc.CompleteAt(ctx, bob, 0); !errors.Is(err, model.ErrIndexOutOfRange) {
		t.Errorf("CompleteAt err = %v, want ErrIndexOutOfRange", err)
	}
	if err := svc.DeleteAt(ctx, bob, 1); !errors.Is(err, model.ErrIndexOutOfRange) {
		t.Errorf("DeleteAt err = %v, want ErrIndexOutOfRange", err)
	}

	mustAdd(t, svc, bob, "x")
	if err := svc.DeleteAt(ctx, bob, 0); err != nil {
		t.Fatalf("DeleteAt に失敗: %v", err)
	}

	assertTasks(t, snapshot(t, svc, alice), []taskView{{"a", false}, {"b", false}})
}

func TestOutOfRangeLeavesListUnchanged(t *testing.T) {
	svc := NewService(repository.NewMemoryTaskRepo())
	ctx := context.Background()

	mustAdd(t, svc, alice, "a", "b")
	before := snapshot(t, svc, alice)

	for _, index := range []int{-1, 2, 100} {
		if _, err := svc.CompleteAt(ctx, alice, index); !errors.Is(err, model.ErrIndexOutOfRange) {
			t.Errorf("CompleteAt(%d) err = %v, want ErrIndexOutOfRange", index, err)
		}
		if err := svc.DeleteAt(ctx, alice, index); !errors.Is(err, model.ErrIndexOutOfRange) {
			t.Errorf("DeleteAt(%d) err = %v, want ErrIndexOutOfRange", index, err)
		}
	}

	assertTasks(t, snapshot(t, svc, alice), before)
}

func TestCompleteAt_AlreadyDoneIsIdempotent(t *testing.T) {
	svc := NewService(repository.NewMemoryTaskRepo())
	ctx := context.Background()

	mustAdd(t, svc, alice, "a")
	for i := 0; i < 2; i++ {
		if _, err := svc.CompleteAt(ctx, alice, 0); err != nil {
			t.Fatalf("CompleteAt に失敗: %v", err)
		}
	}
	assertTasks(t, snapshot(t, svc, alice), []taskView{{"a", true}})
}

func TestConcurrentDeleteMapsToIndexOutOfRange(t *testing.T) {
	repo := &mockTaskRepo{
		listByOwnerFn: func(_ context.Context, owner string) ([]*model.Task, error) {
			return []*model.Task{{ID: "t1", Owner: owner, Title: "a"}}, nil
		},
		updateFn: func(_ context.Context, _ *model.Task) error {
			return repository.ErrNotFound
		},
		deleteFn: func(_ context.Context, _ *model.Task) error {
			return repository.ErrNotFound
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.CompleteAt(ctx, alice, 0); !errors.Is(err, model.ErrIndexOutOfRange) {
		t.Errorf("CompleteAt err = %v, want ErrIndexOutOfRange", err)
	}
	if err := svc.DeleteAt(ctx, alice, 0); !errors.Is(err, model.ErrIndexOutOfRange) {
		t.Errorf("DeleteAt err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestRepositoryErrorsAreWrapped(t *testing.T) {
	repoErr := errors.New("connection reset")
	repo := &mockTaskRepo{
		listByOwnerFn: func(_ context.Context, _ string) ([]*model.Task, error) {
			return nil, repoErr
		},
		createFn: func(_ context.Context, _ *model.Task) error {
			return repoErr
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.ListOwned(ctx, alice); !errors.Is(err, repoErr) {
		t.Errorf("ListOwned err = %v, want wrapped repoErr", err)
	}
	if _, err := svc.AddTask(ctx, alice, "a", false); !errors.Is(err, repoErr) {
		t.Errorf("AddTask err = %v, want wrapped repoErr", err)
	}
	if err := svc.DeleteAt(ctx, alice, 0); !errors.Is(err, repoErr) || model.KindOf(err) != "" {
		t.Errorf("DeleteAt err = %v, want plain wrapped repoErr", err)
	}
}

func TestListOwned_UsesUsernameAsOwner(t *testing.T) {
	var gotOwner string
	repo := &mockTaskRepo{
		listByOwnerFn: func(_ context.Context, owner string) ([]*model.Task, error) {
			gotOwner = owner
			return nil, nil
		},
	}
	svc := NewService(repo)

	if _, err := svc.ListOwned(context.Background(), alice); err != nil {
		t.Fatalf("ListOwned に失敗: %v", err)
	}
	if gotOwner != "alice" {
		t.Errorf("owner = %q, want %q", gotOwner, "alice")
	}
}
