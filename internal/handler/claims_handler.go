package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/startlinker/internal/claims"
	"github.com/hitoshi/startlinker/internal/middleware"
	"github.com/hitoshi/startlinker/internal/model"
)

// ClaimTrackerInterface はClaimsHandlerが必要とする申請閲覧のインターフェース。
type ClaimTrackerInterface interface {
	List(ctx context.Context, token string, status model.ClaimStatus) (*claims.Overview, error)
}

// ClaimsHandler は所有権申請の閲覧APIを処理するハンドラ。
// 申請への書き込み操作は提供しない。
type ClaimsHandler struct {
	tracker ClaimTrackerInterface
}

// NewClaimsHandler はClaimsHandlerの新しいインスタンスを生成する。
func NewClaimsHandler(tracker ClaimTrackerInterface) *ClaimsHandler {
	return &ClaimsHandler{tracker: tracker}
}

// List は GET /api/claims を処理する。
// statusクエリパラメータ省略時は全申請を返す。
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	status := model.ClaimStatus(r.URL.Query().Get("status"))
	overview, err := h.tracker.List(r.Context(), token, status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, overview)
}
