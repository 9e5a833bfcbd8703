package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startlinker/internal/middleware"
	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/progress"
	"github.com/hitoshi/startlinker/internal/security"
	"github.com/hitoshi/startlinker/internal/submission"
	"github.com/hitoshi/startlinker/internal/validator"
)

// SubmissionCoordinatorInterface はSubmissionHandlerが必要とする送信フローのインターフェース。
type SubmissionCoordinatorInterface interface {
	Submit(ctx context.Context, token, userID string, req *submission.Request) (*submission.Result, error)
	Update(ctx context.Context, token, userID string, kind model.SubmissionKind, id int64, req *submission.Request) (*submission.Result, error)
}

// SubmissionHandler は投稿の検証・送信・更新を処理するハンドラ。
type SubmissionHandler struct {
	coordinator   SubmissionCoordinatorInterface
	urlGuard      security.CoverURLGuardService
	uploadMaxSize int64
	now           func() time.Time
}

// NewSubmissionHandler はSubmissionHandlerの新しいインスタンスを生成する。
func NewSubmissionHandler(coordinator SubmissionCoordinatorInterface, urlGuard security.CoverURLGuardService, uploadMaxSize int64) *SubmissionHandler {
	return &SubmissionHandler{
		coordinator:   coordinator,
		urlGuard:      urlGuard,
		uploadMaxSize: uploadMaxSize,
		now:           time.Now,
	}
}

// validateRequest はステップ検証リクエストのボディ。
type validateRequest struct {
	Step     validator.Step       `json:"step"`
	Form     model.SubmissionForm `json:"form"`
	Founders []model.Founder      `json:"founders"`
}

// validateResponse はステップ検証の結果。
// 検証NGでもHTTPステータスは200であり、エラーはフィールド別に返す。
type validateResponse struct {
	Valid    bool              `json:"valid"`
	Errors   map[string]string `json:"errors,omitempty"`
	Progress int               `json:"progress"`
}

// submissionRequestBody は送信・更新リクエストのJSONペイロード。
type submissionRequestBody struct {
	Form        model.SubmissionForm `json:"form"`
	Founders    []model.Founder      `json:"founders"`
	Tags        []string             `json:"tags"`
	SocialLinks map[string]string    `json:"social_links"`
}

// Validate は POST /api/{kind}/validate を処理する。
//
// ウィザードの進行時に呼ばれるアドバイザリ検証で、サーバー側の
// 最終検証と同一のルールを適用する。レビューステップでカバー画像が
// URL指定の場合、SSRF防止検証と画像リソース確認も行う。
func (h *SubmissionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req validateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	req.Form.Kind = kind

	step := req.Step
	if !step.Valid() {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_STEP",
			Message:  "不明な検証ステップです。",
			Category: "validation",
		})
		return
	}

	errs := validator.Validate(step, &req.Form, h.now())

	// レビューステップではURL指定のカバー画像を実際に確認する
	if step == validator.StepReview && req.Form.CoverImageURL != "" && !req.Form.HasCoverFile {
		if err := h.urlGuard.ProbeImageURL(r.Context(), req.Form.CoverImageURL); err != nil {
			errs["cover_image_url"] = model.NewInvalidImageURLError(err.Error()).Message
		}
	}

	writeJSONResponse(w, http.StatusOK, validateResponse{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Progress: progress.Estimate(&req.Form, req.Founders),
	})
}

// Submit は POST /api/{kind} を処理する。
//
// multipart/form-dataの場合はpayloadフィールドのJSONとcover_image
// ファイルを受け取り、それ以外はJSONボディとして解釈する。
// カバー画像がURL指定の場合は送信前にSSRF防止検証を行う。
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	token, userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	kind, err := kindFromRequest(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	req, ok := h.parseSubmissionRequest(w, r, kind)
	if !ok {
		return
	}

	if req.CoverFile == nil && req.Form.CoverImageURL != "" {
		if err := h.urlGuard.ValidateURL(req.Form.CoverImageURL); err != nil {
			handleServiceError(w, model.NewInvalidImageURLError(err.Error()))
			return
		}
	}

	result, err := h.coordinator.Submit(r.Context(), token, userID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, result)
}

// Update は PUT /api/{kind}/{id} を処理する。
// 既存投稿の編集であり、ファイル添付は伴わないJSONボディのみを受け取る。
func (h *SubmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	token, userID, ok := h.identity(w, r)
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

	var body submissionRequestBody
	if !decodeJSONBody(w, r, &body) {
		return
	}
	body.Form.Kind = kind

	if body.Form.CoverImageURL != "" {
		if err := h.urlGuard.ValidateURL(body.Form.CoverImageURL); err != nil {
			handleServiceError(w, model.NewInvalidImageURLError(err.Error()))
			return
		}
	}

	req := &submission.Request{
		Form:        body.Form,
		Founders:    body.Founders,
		Tags:        body.Tags,
		SocialLinks: body.SocialLinks,
	}
	result, err := h.coordinator.Update(r.Context(), token, userID, kind, id, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// identity はリクエストコンテキストから認証情報を取り出す。
func (h *SubmissionHandler) identity(w http.ResponseWriter, r *http.Request) (token, userID string, ok bool) {
	token, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", "", false
	}
	userID, err = middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", "", false
	}
	return token, userID, true
}

// parseSubmissionRequest はSubmitリクエストのボディを解釈する。
// ボディ全体にアップロード上限のサイズ制限を適用する。
func (h *SubmissionHandler) parseSubmissionRequest(w http.ResponseWriter, r *http.Request, kind model.SubmissionKind) (*submission.Request, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return h.parseMultipartRequest(w, r, kind)
	}

	var body submissionRequestBody
	if !decodeJSONBody(w, r, &body) {
		return nil, false
	}
	body.Form.Kind = kind

	return &submission.Request{
		Form:        body.Form,
		Founders:    body.Founders,
		Tags:        body.Tags,
		SocialLinks: body.SocialLinks,
	}, true
}

// parseMultipartRequest はmultipart形式のSubmitリクエストを解釈する。
// payloadフィールドにフォームJSON、cover_imageフィールドに画像ファイルを期待する。
func (h *SubmissionHandler) parseMultipartRequest(w http.ResponseWriter, r *http.Request, kind model.SubmissionKind) (*submission.Request, bool) {
	if err := r.ParseMultipartForm(h.uploadMaxSize); err != nil {
		writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, &model.APIError{
			Code:     "UPLOAD_TOO_LARGE",
			Message:  "アップロードサイズが上限を超えています。",
			Category: "validation",
			Action:   "より小さいファイルを選択してください。",
		})
		return nil, false
	}

	var body submissionRequestBody
	payload := r.FormValue("payload")
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST_BODY",
			Message:  "リクエストボディを解析できませんでした。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return nil, false
	}
	body.Form.Kind = kind

	req := &submission.Request{
		Form:        body.Form,
		Founders:    body.Founders,
		Tags:        body.Tags,
		SocialLinks: body.SocialLinks,
	}

	file, header, err := r.FormFile("cover_image")
	if err == nil {
		req.CoverFile = file
		req.CoverFilename = header.Filename
	} else if err != http.ErrMissingFile {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST_BODY",
			Message:  "カバー画像ファイルを読み取れませんでした。",
			Category: "validation",
		})
		return nil, false
	}

	return req, true
}
