// Package auth はユーザー登録・ログイン・Bearerトークンからのユーザー解決を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/credential"
	"github.com/hitoshi/todoman/internal/model"
	"github.com/hitoshi/todoman/internal/repository"
)

// PasswordHasher はパスワードのハッシュ化と照合を行う。
// credential.Hasher が実装する。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// TokenCodec はBearerトークンの発行と検証を行う。
// token.Codec が実装する。
type TokenCodec interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Validate(token string) (*model.Claims, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	codec    TokenCodec
	now      func() time.Time

	// dummyDigest は未登録ユーザーのログイン時にも照合コストを払うためのダイジェスト。
	dummyDigest func() string
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, hasher PasswordHasher, codec TokenCodec) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		codec:    codec,
		now:      time.Now,
		dummyDigest: sync.OnceValue(func() string {
			digest, err := hasher.Hash(uuid.New().String())
			if err != nil {
				return ""
			}
			return digest
		}),
	}
}

// Register は新規ユーザーを登録する。
// ユーザー名が既に存在する場合はErrUsernameTakenを返し、既存ユーザーは変更しない。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" {
		return nil, model.NewValidationError("username is required")
	}
	if password == "" {
		return nil, model.NewValidationError("password is required")
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.ErrUsernameTaken
	}

	digest, err := s.hasher.Hash(password)
	if errors.Is(err, credential.ErrPasswordTooLong) {
		return nil, model.WrapError(model.NewValidationError("password is too long"), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: digest,
		CreatedAt:    s.now(),
	}

	// 事前チェック後に同名ユーザーが登録された場合も一意制約で検出する
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, model.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login はユーザー名とパスワードを照合し、アクセストークンを発行する。
// ユーザー不在とパスワード不一致は区別せずErrInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		s.hasher.Verify(password, s.dummyDigest())
		return "", model.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", model.ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.Username, 0)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("username", user.Username))
	return token, nil
}

// Authenticate はBearerトークンを検証し、対応するユーザーを返す。
// トークン検証の失敗はErrUnauthenticatedで包んで返すため、
// errors.IsでErrTokenInvalidやErrClaimMissingも判別できる。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.codec.Validate(token)
	if err != nil {
		return nil, model.WrapError(model.ErrUnauthenticated, err)
	}

	user, err := s.userRepo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUnknownSubject
	}
	return user, nil
}
