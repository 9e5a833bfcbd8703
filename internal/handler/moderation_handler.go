package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startlinker/internal/middleware"
	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/moderation"
)

// ModerationEngineInterface はModerationHandlerが必要とするモデレーション操作のインターフェース。
type ModerationEngineInterface interface {
	List(ctx context.Context, token string, kind model.SubmissionKind, filter model.ModerationFilter, search string) (*moderation.Dashboard, error)
	ApplyAction(ctx context.Context, token string, kind model.SubmissionKind, id int64, currentStatus model.SubmissionStatus, featured bool, action model.ModerationAction, reason string, filter model.ModerationFilter, search string) (*moderation.Dashboard, error)
	ApplyBulkAction(ctx context.Context, token string, kind model.SubmissionKind, selection *moderation.SelectionSet, action model.ModerationAction, reason string, filter model.ModerationFilter, search string) (*moderation.BulkOutcome, error)
}

// ModerationHandler は管理者向けモデレーションAPIを処理するハンドラ。
type ModerationHandler struct {
	engine ModerationEngineInterface
}

// NewModerationHandler はModerationHandlerの新しいインスタンスを生成する。
func NewModerationHandler(engine ModerationEngineInterface) *ModerationHandler {
	return &ModerationHandler{engine: engine}
}

// moderationActionRequest は単一モデレーション操作リクエストのボディ。
// CurrentStatusとFeaturedは一覧に表示されている投稿の状態であり、
// 遷移可否の判定基準になる。FilterとSearchは操作後の一覧再取得に使う。
type moderationActionRequest struct {
	Action        model.ModerationAction `json:"action"`
	Reason        string                 `json:"reason"`
	CurrentStatus model.SubmissionStatus `json:"current_status"`
	Featured      bool                   `json:"featured"`
	Filter        model.ModerationFilter `json:"filter"`
	Search        string                 `json:"search"`
}

// bulkActionRequest は一括モデレーション操作リクエストのボディ。
//
// SelectAllがtrueのときIDsは表示中の全件として一括選択される。
// falseのときIDsは個別チェックの操作列として順にトグルされ、
// 同じIDが2回現れるとその投稿は選択解除になる。
type bulkActionRequest struct {
	IDs       []int64                `json:"ids"`
	SelectAll bool                   `json:"select_all"`
	Action    model.ModerationAction `json:"action"`
	Reason    string                 `json:"reason"`
	Filter    model.ModerationFilter `json:"filter"`
	Search    string                 `json:"search"`
}

// List は GET /api/admin/{kind} を処理する。
// filterクエリパラメータ省略時は全件表示として扱う。
func (h *ModerationHandler) List(w http.ResponseWriter, r *http.Request) {
	token, ok := adminToken(w, r)
	if !ok {
		return
	}

	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	filter := filterOrDefault(r.URL.Query().Get("filter"))
	search := r.URL.Query().Get("search")

	dashboard, err := h.engine.List(r.Context(), token, kind, filter, search)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, dashboard)
}

// ApplyAction は POST /api/admin/{kind}/{id}/actions を処理する。
func (h *ModerationHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	token, ok := adminToken(w, r)
	if !ok {
		return
	}

	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		handleServiceError(w, model.NewSubmissionNotFoundError(id))
		return
	}

	var req moderationActionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	dashboard, err := h.engine.ApplyAction(r.Context(), token, kind, id,
		req.CurrentStatus, req.Featured, req.Action, req.Reason,
		filterOrDefault(string(req.Filter)), req.Search)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, dashboard)
}

// ApplyBulkAction は POST /api/admin/{kind}/bulk を処理する。
// 選択IDは1回の操作でまとめて送信され、操作の成否にかかわらず
// 選択状態は残らない。
func (h *ModerationHandler) ApplyBulkAction(w http.ResponseWriter, r *http.Request) {
	token, ok := adminToken(w, r)
	if !ok {
		return
	}

	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req bulkActionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	selection := moderation.NewSelectionSet()
	if req.SelectAll {
		selection.SelectAll(req.IDs)
	} else {
		for _, id := range req.IDs {
			selection.Toggle(id)
		}
	}

	outcome, err := h.engine.ApplyBulkAction(r.Context(), token, kind, selection,
		req.Action, req.Reason, filterOrDefault(string(req.Filter)), req.Search)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, outcome)
}

// adminToken はリクエストコンテキストからトークンを取り出す。
// 管理者判定自体はAdminMiddlewareが行う。
func adminToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return token, true
}

// filterOrDefault は空フィルタを全件表示として解釈する。
func filterOrDefault(raw string) model.ModerationFilter {
	if raw == "" {
		return model.FilterAll
	}
	return model.ModerationFilter(raw)
}
