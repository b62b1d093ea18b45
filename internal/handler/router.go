package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	Logger            *slog.Logger // nilの場合はslog.Default()

	// サービス
	AuthService AuthServiceInterface
	TaskService TaskServiceInterface

	// 運用
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector // nilの場合はメトリクスを記録しない
	Gatherer      prometheus.Gatherer      // nilの場合は/metricsを公開しない
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Metrics → Logging → Recovery → SecurityHeaders → CORS → (BearerAuth)
//
// Recoveryが書いた500もMetricsとLoggingに記録される。
//
// /register、/login、/health、/metrics は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	var authMetrics AuthMetrics
	var taskMetrics TaskMetrics
	var authFailures middleware.AuthFailureRecorder
	if deps.Metrics != nil {
		authMetrics = deps.Metrics
		taskMetrics = deps.Metrics
		authFailures = deps.Metrics
	}

	authHandler := NewAuthHandler(deps.AuthService, authMetrics)
	taskHandler := NewTaskHandler(deps.TaskService, taskMetrics)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.Authenticator, authFailures))

		r.Get("/auth/me", authHandler.Me)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Put("/{index}", taskHandler.CompleteTask)
			r.Delete("/{index}", taskHandler.DeleteTask)
		})
	})

	return r
}
