package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/todoman/internal/credential"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockHasher struct {
	verifyCalls []string
}

func (m *mockHasher) Hash(password string) (string, error) {
	return "digest:" + password, nil
}

func (m *mockHasher) Verify(password, digest string) bool {
	m.verifyCalls = append(m.verifyCalls, digest)
	return digest == "digest:"+password
}

// --- ヘルパー ---

func newTestCodec(t *testing.T, now func() time.Time) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(token.Config{Secret: []byte("test-secret"), Now: now})
	if err != nil {
		t.Fatalf("NewCodec に失敗: %v", err)
	}
	return codec
}

func newTestService(t *testing.T) (*Service, *repository.MemoryUserRepo) {
	t.Helper()
	repo := repository.NewMemoryUserRepo()
	svc := NewService(repo, credential.NewHasher(bcrypt.MinCost), newTestCodec(t, nil))
	return svc, repo
}

// --- Register ---

func TestRegister_CreatesUserWithHashedPassword(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Register に失敗: %v", err)
	}
	if user.ID == "" {
		t.Error("ユーザーIDが設定されていない")
	}
	if user.PasswordHash == "pw1" || user.PasswordHash == "" {
		t.Errorf("パスワードがハッシュ化されていない: %q", user.PasswordHash)
	}

	stored, _ := repo.FindByUsername(ctx, "alice")
	if stored == nil {
		t.Fatal("登録したユーザーがストアに存在しない")
	}
	if !credential.NewHasher(bcrypt.MinCost).Verify("pw1", stored.PasswordHash) {
		t.Error("保存されたダイジェストが元のパスワードと一致しない")
	}
}

func TestRegister_DuplicateKeepsFirstPassword(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("1回目の Register に失敗: %v", err)
	}
	first, _ := repo.FindByUsername(ctx, "alice")

	_, err := svc.Register(ctx, "alice", "pw2")
	if !errors.Is(err, model.ErrUsernameTaken) {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
	if !errors.Is(err, model.ErrCredential) {
		t.Error("ErrUsernameTaken は資格情報エラーとして判別できるべき")
	}

	after, _ := repo.FindByUsername(ctx, "alice")
	if after.PasswordHash != first.PasswordHash {
		t.Error("重複登録で既存のパスワードが変更された")
	}
	if _, err := svc.Login(ctx, "alice", "pw1"); err != nil {
		t.Errorf("元のパスワードでログインできない: %v", err)
	}
}

func TestRegister_RaceOnCreateMapsToUsernameTaken(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateUsername
		},
	}
	svc := NewService(repo, &mockHasher{}, newTestCodec(t, nil))

	_, err := svc.Register(context.Background(), "alice", "pw1")
	if !errors.Is(err, model.ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"ユーザー名が空", "", "pw"},
		{"パスワードが空", "alice", ""},
		{"パスワードが72バイト超", "alice", strings.Repeat("x", 73)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.password)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := &mockUserRepo{
		findByUsernameFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, repoErr
		},
	}
	svc := NewService(repo, &mockHasher{}, newTestCodec(t, nil))

	_, err := svc.Register(context.Background(), "alice", "pw1")
	if !errors.Is(err, repoErr) {
		t.Errorf("err = %v, want wrapped repoErr", err)
	}
	if model.KindOf(err) != "" {
		t.Errorf("インフラエラーがドメインエラーとして扱われた: %v", model.KindOf(err))
	}
}

// --- Login ---

func TestLogin_IssuesTokenForSubject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register に失敗: %v", err)
	}

	tok, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login に失敗: %v", err)
	}

	user, err := svc.Authenticate(ctx, tok)
	if err != nil {
		t.Fatalf("Authenticate に失敗: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want %q", user.Username, "alice")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register に失敗: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"パスワード不一致", "alice", "wrong"},
		{"未登録ユーザー", "bob", "pw1"},
		{"大文字小文字違い", "Alice", "pw1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := svc.Login(ctx, tt.username, tt.password)
			if !errors.Is(err, model.ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
			if tok != "" {
				t.Error("失敗時にトークンが返された")
			}
		})
	}
}

func TestLogin_UnknownUserStillVerifies(t *testing.T) {
	hasher := &mockHasher{}
	svc := NewService(&mockUserRepo{}, hasher, newTestCodec(t, nil))

	if _, err := svc.Login(context.Background(), "ghost", "pw"); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if len(hasher.verifyCalls) != 1 {
		t.Errorf("Verify 呼び出し回数 = %d, want 1", len(hasher.verifyCalls))
	}
}

// --- Authenticate ---

func TestAuthenticate_ExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := repository.NewMemoryUserRepo()
	codec := newTestCodec(t, clock)
	svc := NewService(repo, credential.NewHasher(bcrypt.MinCost), codec)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register に失敗: %v", err)
	}
	tok, err := codec.Issue("alice", 60*time.Second)
	if err != nil {
		t.Fatalf("Issue に失敗: %v", err)
	}

	now = now.Add(59 * time.Second)
	if _, err := svc.Authenticate(ctx, tok); err != nil {
		t.Fatalf("有効期限内のトークンが拒否された: %v", err)
	}

	now = now.Add(1 * time.Second)
	_, err = svc.Authenticate(ctx, tok)
	if !errors.Is(err, model.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if !errors.Is(err, model.ErrTokenInvalid) {
		t.Errorf("err = %v, want wrapped ErrTokenInvalid", err)
	}
}

func TestAuthenticate_TamperedToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1"); err != nil {
		t.Fatalf("Register に失敗: %v", err)
	}
	tok, err := svc.Login(ctx, "alice", "pw1")
	if err != nil {
		t.Fatalf("Login に失敗: %v", err)
	}

	b := []byte(tok)
	if b[1] == 'A' {
		b[1] = 'B'
	} else {
		b[1] = 'A'
	}

	_, err = svc.Authenticate(ctx, string(b))
	if !errors.Is(err, model.ErrUnauthenticated) || !errors.Is(err, model.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrUnauthenticated wrapping ErrTokenInvalid", err)
	}
}

func TestAuthenticate_ClaimMissing(t *testing.T) {
	codec := &mockCodec{
		validateFn: func(_ string) (*model.Claims, error) {
			return nil, model.ErrClaimMissing
		},
	}
	svc := NewService(&mockUserRepo{}, &mockHasher{}, codec)

	_, err := svc.Authenticate(context.Background(), "tok")
	if !errors.Is(err, model.ErrUnauthenticated) || !errors.Is(err, model.ErrClaimMissing) {
		t.Errorf("err = %v, want ErrUnauthenticated wrapping ErrClaimMissing", err)
	}
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	svc, _ := newTestService(t)
	codec := newTestCodec(t, nil)

	tok, err := codec.Issue("ghost", 0)
	if err != nil {
		t.Fatalf("Issue に失敗: %v", err)
	}

	_, err = svc.Authenticate(context.Background(), tok)
	if !errors.Is(err, model.ErrUnknownSubject) {
		t.Errorf("err = %v, want ErrUnknownSubject", err)
	}
	if errors.Is(err, model.ErrUnauthenticated) {
		t.Error("ユーザー不明はトークン不正と区別されるべき")
	}
}

type mockCodec struct {
	issueFn    func(subject string, ttl time.Duration) (string, error)
	validateFn func(tok string) (*model.Claims, error)
}

func (m *mockCodec) Issue(subject string, ttl time.Duration) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(subject, ttl)
	}
	return "token-" + subject, nil
}

func (m *mockCodec) Validate(tok string) (*model.Claims, error) {
	if m.validateFn != nil {
		return m.validateFn(tok)
	}
	return &model.Claims{Subject: strings.TrimPrefix(tok, "token-")}, nil
}
