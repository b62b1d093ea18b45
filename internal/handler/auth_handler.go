// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
)

// maxCredentialBodyBytes は登録・ログインリクエストボディの上限。
const maxCredentialBodyBytes = 16 << 10

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

// AuthMetrics は認証ハンドラーが記録するメトリクス。metrics.Collector が実装する。
type AuthMetrics interface {
	RecordRegistration(result string)
	RecordLogin(result string)
}

// AuthHandler はユーザー登録・ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。mはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, m AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: m,
	}
}

// credentialsRequest は登録・ログインリクエストのボディ。
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// messageResponse はメッセージのみのレスポンス。
type messageResponse struct {
	Message string `json:"message"`
}

// tokenResponse はログイン成功時のレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// meResponse は現在のユーザー情報のレスポンス。
type meResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Register はユーザー登録を処理する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Register(r.Context(), req.Username, req.Password); err != nil {
		h.recordRegistration(metrics.ResultFailure)
		handleServiceError(w, err)
		return
	}

	h.recordRegistration(metrics.ResultSuccess)
	writeJSON(w, http.StatusCreated, messageResponse{Message: "登録完了！"})
}

// Login はログインを処理し、アクセストークンを返す。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.recordLogin(metrics.ResultFailure)
		handleServiceError(w, err)
		return
	}

	h.recordLogin(metrics.ResultSuccess)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(""))
		return
	}

	writeJSON(w, http.StatusOK, meResponse{ID: user.ID, Username: user.Username})
}

func (h *AuthHandler) recordRegistration(result string) {
	if h.metrics != nil {
		h.metrics.RecordRegistration(result)
	}
}

func (h *AuthHandler) recordLogin(result string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(result)
	}
}

// decodeCredentials はJSONまたはフォーム形式のボディからユーザー名とパスワードを読み取る。
// 失敗した場合はエラーレスポンスを書き込み、falseを返す。
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
			return req, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("フォームの解析に失敗しました"))
		return req, false
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, true
}
