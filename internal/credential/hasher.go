// Package credential はパスワードの一方向ハッシュ化と照合を提供する。
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong はbcryptの入力上限（72バイト）を超えるパスワードを表す。
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Hasher はbcryptによるパスワードハッシュ化を行う。
// ゼロ値は使用せず、NewHasherで生成すること。
type Hasher struct {
	cost int
}

// NewHasher はHasherを生成する。
// costがbcryptの許容範囲外の場合はbcrypt.DefaultCostを使用する。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash はパスワードをソルト付きでハッシュ化したダイジェストを返す。
// 同じパスワードでも呼び出しごとに異なるダイジェストになる。
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify はpasswordがdigestの元になったパスワードと一致するかを返す。
// 不正な形式のダイジェストに対してはfalseを返す。
func (h *Hasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
