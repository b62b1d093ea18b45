// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Usernameが識別キーであり、登録後は変更されない。
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcryptダイジェスト。平文パスワードは保持しない
	CreatedAt    time.Time
}

// Claims はBearerトークンに埋め込まれるセッションクレームを表す。
// 永続化されず、トークン文字列そのものが存在の根拠となる。
type Claims struct {
	Subject   string // ユーザー名
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}
