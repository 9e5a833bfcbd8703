package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/startlinker/internal/metrics"
	"github.com/hitoshi/startlinker/internal/middleware"
	"github.com/hitoshi/startlinker/internal/security"
)

// Pinger はヘルスチェックで使用するデータベース疎通確認のインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	UserFetcher       middleware.UserFetcher
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 下書き
	DraftService DraftServiceInterface

	// 送信フロー
	Coordinator   SubmissionCoordinatorInterface
	URLGuard      security.CoverURLGuardService
	UploadMaxSize int64

	// モデレーション
	ModerationEngine ModerationEngineInterface

	// 申請閲覧
	ClaimTracker ClaimTrackerInterface

	// 運用エンドポイント
	MetricsGatherer prometheus.Gatherer
	DB              Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// 運用エンドポイント（/healthz, /metrics）は認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	draftHandler := NewDraftHandler(deps.DraftService)
	submissionHandler := NewSubmissionHandler(deps.Coordinator, deps.URLGuard, deps.UploadMaxSize)
	moderationHandler := NewModerationHandler(deps.ModerationEngine)
	claimsHandler := NewClaimsHandler(deps.ClaimTracker)

	// --- 認証不要のルート ---

	r.Get("/healthz", newHealthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.UserFetcher))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 投稿ウィザード
		r.Route("/api/{kind}", func(r chi.Router) {
			// POST /api/{kind} - 投稿送信（送信専用レート制限を追加）
			r.With(deps.RateLimiter.SubmitMiddleware()).Post("/", submissionHandler.Submit)
			r.With(deps.RateLimiter.SubmitMiddleware()).Put("/{id}", submissionHandler.Update)

			r.Post("/validate", submissionHandler.Validate)

			// 下書き
			r.Route("/drafts", func(r chi.Router) {
				r.Post("/", draftHandler.SaveDraft)
				r.Get("/", draftHandler.GetDraft)
				r.Delete("/", draftHandler.DeleteDraft)
			})
		})

		// 所有権申請（読み取り専用）
		r.Get("/api/claims", claimsHandler.List)

		// モデレーション（管理者のみ）
		r.Route("/api/admin/{kind}", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware())

			r.Get("/", moderationHandler.List)
			r.Post("/{id}/actions", moderationHandler.ApplyAction)
			r.Post("/bulk", moderationHandler.ApplyBulkAction)
		})
	})

	return r
}

// newHealthHandler はデータベース疎通を確認するヘルスチェックハンドラを返す。
func newHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
