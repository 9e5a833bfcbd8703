package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/startlinker/internal/middleware"
	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/progress"
)

// DraftServiceInterface はDraftHandlerが必要とする下書きサービスのインターフェース。
type DraftServiceInterface interface {
	Save(ctx context.Context, userID string, kind model.SubmissionKind, snapshot *model.DraftSnapshot) error
	Load(ctx context.Context, userID string, kind model.SubmissionKind) (*model.DraftSnapshot, error)
	Clear(ctx context.Context, userID string, kind model.SubmissionKind) error
}

// DraftHandler は下書きの保存・復元・破棄を処理するハンドラ。
type DraftHandler struct {
	service DraftServiceInterface
}

// NewDraftHandler はDraftHandlerの新しいインスタンスを生成する。
func NewDraftHandler(service DraftServiceInterface) *DraftHandler {
	return &DraftHandler{service: service}
}

// saveDraftRequest は下書き保存リクエストのボディ。
type saveDraftRequest struct {
	Form        model.SubmissionForm `json:"form"`
	Founders    []model.Founder      `json:"founders"`
	Tags        []string             `json:"tags"`
	SocialLinks map[string]string    `json:"social_links"`
}

// draftResponse は下書き取得レスポンス。
// Draftがnullの場合、対応する下書きは存在しない。
type draftResponse struct {
	Draft    *model.DraftSnapshot `json:"draft"`
	Progress int                  `json:"progress"`
}

// SaveDraft は POST /api/{kind}/drafts を処理する。
func (h *DraftHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req saveDraftRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	req.Form.Kind = kind

	snapshot := &model.DraftSnapshot{
		Form:        req.Form,
		Founders:    req.Founders,
		Tags:        req.Tags,
		SocialLinks: req.SocialLinks,
	}
	if err := h.service.Save(r.Context(), userID, kind, snapshot); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]bool{"saved": true})
}

// GetDraft は GET /api/{kind}/drafts を処理する。
// 下書きが存在しない場合もエラーではなくdraft=nullを返す。
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	snapshot, err := h.service.Load(r.Context(), userID, kind)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := draftResponse{Draft: snapshot}
	if snapshot != nil {
		resp.Progress = progress.Estimate(&snapshot.Form, snapshot.Founders)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// DeleteDraft は DELETE /api/{kind}/drafts を処理する。
func (h *DraftHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.Clear(r.Context(), userID, kind); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
