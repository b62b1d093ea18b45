// Package token はBearerトークン（HS256署名のJWT）の発行と検証を提供する。
//
// 署名鍵はCodec生成時に注入され、プロセスの生存期間中は変更されない。
// 失効リストは持たず、有効期限と鍵のローテーションのみで無効化する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/todoman/internal/model"
)

// DefaultTTL はTTL未指定時のトークン有効期間。
const DefaultTTL = 30 * time.Minute

// Config はCodecの設定。
type Config struct {
	Secret     []byte           // HS256署名鍵
	DefaultTTL time.Duration    // 0以下の場合はDefaultTTL
	Now        func() time.Time // nilの場合はtime.Now
}

// Codec はクレームセットを署名付きトークン文字列に変換し、検証して復元する。
type Codec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewCodec はCodecを生成する。署名鍵が空の場合はエラーを返す。
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		secret:     secret,
		defaultTTL: ttl,
		now:        now,
	}, nil
}

// Issue はsubjectを主体とし、ttl後に失効するトークンを発行する。
// ttlが0以下の場合は既定の有効期間を使う。
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", model.NewValidationError("subject is required")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate は署名と有効期限を検証し、クレームを返す。
//
// 署名不一致・形式不正・HS256以外のアルゴリズム・期限切れ・exp欠落は
// model.ErrTokenInvalid、subクレームの欠落はmodel.ErrClaimMissingとなる。
func (c *Codec) Validate(tokenString string) (*model.Claims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, model.WrapError(model.ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return nil, model.ErrClaimMissing
	}

	result := &model.Claims{
		Subject: claims.Subject,
		ID:      claims.ID,
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

// DefaultLifetime は既定のトークン有効期間を返す。
func (c *Codec) DefaultLifetime() time.Duration {
	return c.defaultTTL
}

func (c *Codec) keyFunc(_ *jwt.Token) (any, error) {
	return c.secret, nil
}
