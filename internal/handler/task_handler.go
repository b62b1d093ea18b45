package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/model"
)

// maxTaskBodyBytes はタスク作成リクエストボディの上限。
const maxTaskBodyBytes = 64 << 10

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	ListOwned(ctx context.Context, user *model.User) ([]*model.Task, error)
	AddTask(ctx context.Context, user *model.User, title string, done bool) (*model.Task, error)
	CompleteAt(ctx context.Context, user *model.User, index int) (*model.Task, error)
	DeleteAt(ctx context.Context, user *model.User, index int) error
}

// TaskMetrics はタスクハンドラーが記録するメトリクス。metrics.Collector が実装する。
type TaskMetrics interface {
	RecordTaskOperation(op, result string)
}

// TaskHandler はタスク操作のHTTPハンドラー。
// タスクは所有者の一覧内の位置（0始まり）で指定する。
type TaskHandler struct {
	service TaskServiceInterface
	metrics TaskMetrics
}

// NewTaskHandler はTaskHandlerを生成する。mはnilでもよい。
func NewTaskHandler(service TaskServiceInterface, m TaskMetrics) *TaskHandler {
	return &TaskHandler{
		service: service,
		metrics: m,
	}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	Title *string `json:"title"`
	Done  bool   `json:"done"`
}

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// ListTasks はユーザーのタスク一覧を返す。
// GET /todos
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListOwned(r.Context(), user)
	if err != nil {
		h.record("list", metrics.ResultFailure)
		handleServiceError(w, err)
		return
	}

	h.record("list", metrics.ResultSuccess)
	resp := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTask はタスクを一覧の末尾に追加する。
// POST /todos
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxTaskBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}

	if req.Title == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("titleは必須です"))
		return
	}

	t, err := h.service.AddTask(r.Context(), user, *req.Title, req.Done)
	if err != nil {
		h.record("add", metrics.ResultFailure)
		handleServiceError(w, err)
		return
	}

	h.record("add", metrics.ResultSuccess)
	writeJSON(w, http.StatusCreated, toTaskResponse(t))
}

// CompleteTask は指定位置のタスクを完了にする。
// PUT /todos/{index}
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	index, ok := h.parseIndex(w, r, "complete")
	if !ok {
		return
	}

	t, err := h.service.CompleteAt(r.Context(), user, index)
	if err != nil {
		h.record("complete", resultOf(err))
		handleServiceError(w, err)
		return
	}

	h.record("complete", metrics.ResultSuccess)
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// DeleteTask は指定位置のタスクを削除する。後続タスクの位置は1つずつ前にずれる。
// DELETE /todos/{index}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	index, ok := h.parseIndex(w, r, "delete")
	if !ok {
		return
	}

	if err := h.service.DeleteAt(r.Context(), user, index); err != nil {
		h.record("delete", resultOf(err))
		handleServiceError(w, err)
		return
	}

	h.record("delete", metrics.ResultSuccess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) record(op, result string) {
	if h.metrics != nil {
		h.metrics.RecordTaskOperation(op, result)
	}
}

// resultOf は範囲外インデックスをout_of_rangeとして区別する。
func resultOf(err error) string {
	if errors.Is(err, model.ErrIndexOutOfRange) {
		return "out_of_range"
	}
	return metrics.ResultFailure
}

// requireUser はBearer認証で注入されたユーザーを取り出す。
func requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError(""))
		return nil, false
	}
	return user, true
}

// parseIndex はパスパラメータのインデックスを整数として読み取る。
// 負の値は範囲外としてサービス層で扱う。intに収まらない整数は範囲外とする。
func (h *TaskHandler) parseIndex(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if errors.Is(err, strconv.ErrRange) {
		h.record(op, resultOf(model.ErrIndexOutOfRange))
		handleServiceError(w, model.ErrIndexOutOfRange)
		return 0, false
	}
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("インデックスは整数で指定してください"))
		return 0, false
	}
	return index, true
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{Title: t.Title, Done: t.Done}
}
