// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/todoman/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("user")

// Authenticator はBearerトークンからユーザーを解決する。
// auth.Service が実装する。
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// AuthFailureRecorder は認証失敗の記録先。metrics.Collector が実装する。
type AuthFailureRecorder interface {
	RecordAuthFailure(kind string)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// 検証に失敗したリクエストには401を返す。recorderはnilでもよい。
func NewBearerAuthMiddleware(authenticator Authenticator, recorder AuthFailureRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				recordAuthFailure(recorder, string(model.KindUnauthenticated))
				writeUnauthorized(w, model.ErrCodeUnauthorized)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				code, kind := classifyAuthError(err)
				if code == "" {
					slog.Error("failed to authenticate request",
						slog.String("error", err.Error()),
					)
					WriteInternalServerError(w)
					return
				}
				recordAuthFailure(recorder, kind)
				writeUnauthorized(w, code)
				return
			}

			fillRequestUserSlot(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// Bearer認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// bearerToken はAuthorizationヘッダーからトークンを取り出す。
// スキーム名は大文字小文字を区別しない。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// classifyAuthError は認証エラーをエラーコードとメトリクス用の種別に変換する。
// ドメインエラーでない場合はcodeに空文字列を返す。
func classifyAuthError(err error) (code, kind string) {
	switch {
	case errors.Is(err, model.ErrClaimMissing):
		return model.ErrCodeClaimMissing, string(model.KindClaimMissing)
	case errors.Is(err, model.ErrTokenInvalid):
		return model.ErrCodeTokenInvalid, string(model.KindTokenInvalid)
	case errors.Is(err, model.ErrUnknownSubject):
		return model.ErrCodeUnknownSubject, string(model.KindUnknownSubject)
	case errors.Is(err, model.ErrUnauthenticated):
		return model.ErrCodeUnauthorized, string(model.KindUnauthenticated)
	default:
		return "", ""
	}
}

func recordAuthFailure(recorder AuthFailureRecorder, kind string) {
	if recorder != nil {
		recorder.RecordAuthFailure(kind)
	}
}

func writeUnauthorized(w http.ResponseWriter, code string) {
	WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(code))
}
