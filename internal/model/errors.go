// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind は認証・認可コアが返すエラーの種別を表す。
// 種別は閉じた集合であり、呼び出し側はerrors.Isで判別する。
type ErrorKind string

const (
	// KindCredential はパスワード不一致や重複ユーザー名などの資格情報エラー。
	KindCredential ErrorKind = "credential"
	// KindTokenInvalid は署名不一致・形式不正・期限切れのトークン。
	KindTokenInvalid ErrorKind = "token_invalid"
	// KindClaimMissing はトークンにsubクレームが含まれない。
	KindClaimMissing ErrorKind = "claim_missing"
	// KindUnauthenticated はトークン検証に失敗した未認証状態。
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindUnknownSubject はクレームのユーザーが存在しない。
	KindUnknownSubject ErrorKind = "unknown_subject"
	// KindIndexOutOfRange はタスクインデックスが範囲外。
	KindIndexOutOfRange ErrorKind = "index_out_of_range"
	// KindValidation は入力値の検証エラー。
	KindValidation ErrorKind = "validation"
)

// Error はドメインエラーを表す。
// Kindが同じでReasonが空のErrorをtargetにしたerrors.Isはtrueを返す。
type Error struct {
	Kind   ErrorKind
	Reason string // 同一Kind内の細分類（例: "username taken"）
	Err    error  // 原因エラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// Is はKindとReasonでエラーを比較する。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// 定義済みドメインエラー。
var (
	ErrCredential         = &Error{Kind: KindCredential}
	ErrUsernameTaken      = &Error{Kind: KindCredential, Reason: "username taken"}
	ErrInvalidCredentials = &Error{Kind: KindCredential, Reason: "invalid credentials"}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid}
	ErrClaimMissing       = &Error{Kind: KindClaimMissing}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrUnknownSubject     = &Error{Kind: KindUnknownSubject}
	ErrIndexOutOfRange    = &Error{Kind: KindIndexOutOfRange}
	ErrValidation         = &Error{Kind: KindValidation}
)

// WrapError は定義済みエラーの種別を保ったまま原因エラーを付与する。
func WrapError(sentinel *Error, err error) *Error {
	return &Error{Kind: sentinel.Kind, Reason: sentinel.Reason, Err: err}
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// KindOf はエラーチェーンの最も外側のドメインエラー種別を返す。
// ドメインエラーを含まない場合は空文字列を返す。
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeClaimMissing       = "CLAIM_MISSING"
	ErrCodeUnknownSubject     = "UNKNOWN_SUBJECT"
	ErrCodeIndexOutOfRange    = "INDEX_OUT_OF_RANGE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "ユーザー名は既に存在します。",
		Category: "auth",
		Action:   "別のユーザー名で登録してください。",
	}
}

// NewInvalidCredentialsError はログイン情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ログイン情報が間違っています。",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// codeにはトークン不正・クレーム欠落・ユーザー不明の区別を指定する（診断用）。
func NewUnauthorizedError(code string) *APIError {
	if code == "" {
		code = ErrCodeUnauthorized
	}
	return &APIError{
		Code:     code,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewIndexOutOfRangeError はタスクインデックス範囲外エラーを生成する。
func NewIndexOutOfRangeError() *APIError {
	return &APIError{
		Code:     ErrCodeIndexOutOfRange,
		Message:  "指定された番号のタスクは存在しません。",
		Category: "task",
		Action:   "タスク一覧を再取得して番号を確認してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
