package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
)

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	if apiErr == nil {
		// ドメインエラー以外は内部サーバーエラーとして扱う
		slog.Error("internal server error", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}
	slog.Debug("domain error",
		slog.String("kind", string(model.KindOf(err))),
		slog.String("code", apiErr.Code),
	)
	writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// toAPIError はドメインエラーをAPIErrorに変換する。
// ドメインエラーを含まない場合はnilを返す。
func toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	// 包まれた原因の種別を優先して判定する
	switch {
	case errors.Is(err, model.ErrUsernameTaken):
		return model.NewUsernameTakenError()
	case errors.Is(err, model.ErrInvalidCredentials):
		return model.NewInvalidCredentialsError()
	case errors.Is(err, model.ErrClaimMissing):
		return model.NewUnauthorizedError(model.ErrCodeClaimMissing)
	case errors.Is(err, model.ErrTokenInvalid):
		return model.NewUnauthorizedError(model.ErrCodeTokenInvalid)
	case errors.Is(err, model.ErrUnknownSubject):
		return model.NewUnauthorizedError(model.ErrCodeUnknownSubject)
	case errors.Is(err, model.ErrUnauthenticated):
		return model.NewUnauthorizedError(model.ErrCodeUnauthorized)
	case errors.Is(err, model.ErrIndexOutOfRange):
		return model.NewIndexOutOfRangeError()
	case errors.Is(err, model.ErrValidation):
		var de *model.Error
		errors.As(err, &de)
		return model.NewInvalidRequestError(de.Reason)
	default:
		return nil
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUsernameTaken, model.ErrCodeInvalidCredentials:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeTokenInvalid,
		model.ErrCodeClaimMissing, model.ErrCodeUnknownSubject:
		return http.StatusUnauthorized
	case model.ErrCodeIndexOutOfRange:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
