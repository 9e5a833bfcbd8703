// Package submission は投稿の送信・更新フローを調整する。
//
// 送信は2フェーズで行われる。フェーズ1で投稿本体を作成し、
// フェーズ2でカバー画像ファイルを添付する。フェーズ1の失敗は
// 部分状態を残さず中断し、フェーズ2の失敗は劣化完了（警告付き成功）
// として扱う。ロールバックも自動リトライも行わない。
package submission

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/startlinker/internal/metrics"
	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/security"
	"github.com/hitoshi/startlinker/internal/upstream"
	"github.com/hitoshi/startlinker/internal/validator"
)

// UpstreamAPI は送信フローが必要とする上流API操作のインターフェース。
type UpstreamAPI interface {
	CreateSubmission(ctx context.Context, token string, kind model.SubmissionKind, payload *upstream.SubmissionPayload) (*upstream.CreateResult, error)
	UpdateSubmission(ctx context.Context, token string, kind model.SubmissionKind, id int64, payload *upstream.SubmissionPayload) (*upstream.UpdateResult, error)
	SubmitEditForReview(ctx context.Context, token string, kind model.SubmissionKind, id int64, payload *upstream.SubmissionPayload) (*upstream.UpdateResult, error)
	UploadCoverAsset(ctx context.Context, token string, kind model.SubmissionKind, id int64, filename string, file io.Reader) (*upstream.AssetResult, error)
}

// DraftClearer は送信成功後の下書き破棄のインターフェース。
type DraftClearer interface {
	Clear(ctx context.Context, userID string, kind model.SubmissionKind) error
}

// Request は送信・更新リクエストの入力一式。
type Request struct {
	Form        model.SubmissionForm
	Founders    []model.Founder
	Tags        []string
	SocialLinks map[string]string

	// カバー画像ファイル。nilの場合はURL指定（Form.CoverImageURL）か
	// カバーなしとして扱われる。
	CoverFile     io.Reader
	CoverFilename string
}

// Result は送信・更新の結果。
// Warningが空でない場合、本体の操作は成功したが付随処理が
// 失敗している（劣化完了）。呼び出し元は成功後に一覧を再取得すること。
type Result struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	Warning string `json:"warning,omitempty"`
}

// Coordinator は送信・更新フローの実装。
// (ユーザー, 投稿種別)ごとに同時に1つの送信のみを許可する。
type Coordinator struct {
	api       UpstreamAPI
	drafts    DraftClearer
	sanitizer security.FieldSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger

	// detachedUploadTimeout はフェーズ2アップロードの独立タイムアウト。
	// クライアント切断後もフェーズ2を完了させるため、リクエストの
	// コンテキストから切り離して適用する。
	detachedUploadTimeout time.Duration

	now func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCoordinator はCoordinatorの新しいインスタンスを生成する。
func NewCoordinator(
	api UpstreamAPI,
	drafts DraftClearer,
	sanitizer security.FieldSanitizerService,
	collector metrics.MetricsCollector,
	detachedUploadTimeout time.Duration,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		api:                   api,
		drafts:                drafts,
		sanitizer:             sanitizer,
		metrics:               collector,
		logger:                logger,
		detachedUploadTimeout: detachedUploadTimeout,
		now:                   time.Now,
		inFlight:              make(map[string]struct{}),
	}
}

// Submit は新規投稿を送信する。
//
// フロー: サニタイズ → 最終検証 → フェーズ1（本体作成）→ 下書き破棄 →
// フェーズ2（ファイル添付、ファイルがある場合のみ）。
// 同一(ユーザー, 種別)の送信が進行中の間、2つ目の送信は
// キューイングされず即座に拒否される。
func (c *Coordinator) Submit(ctx context.Context, token, userID string, req *Request) (*Result, error) {
	kind := req.Form.Kind
	if !kind.Valid() {
		return nil, model.NewInvalidKindError(string(kind))
	}

	if !c.acquire(userID, kind) {
		return nil, model.NewSubmissionInFlightError()
	}
	defer c.release(userID, kind)

	form := c.sanitizeForm(req.Form)
	form.HasCoverFile = req.CoverFile != nil

	if errs := validator.Validate(validator.StepReview, &form, c.now()); len(errs) > 0 {
		return nil, model.NewValidationFailedError(errs)
	}

	payload := c.buildPayload(&form, req)

	// フェーズ1: 本体作成。失敗時は部分状態を残さず中断する。
	created, err := c.api.CreateSubmission(ctx, token, kind, payload)
	if err != nil {
		c.metrics.RecordSubmissionFailed(string(kind))
		return nil, err
	}
	c.metrics.RecordSubmissionCreated(string(kind))

	c.logger.Info("投稿を作成しました",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.Int64("submission_id", created.ID),
	)

	// 送信が成立したため下書きを破棄する。失敗してもフローは止めない。
	if err := c.drafts.Clear(ctx, userID, kind); err != nil {
		c.logger.Warn("送信後の下書き破棄に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	result := &Result{Success: true, ID: created.ID}

	// フェーズ2: ファイル添付。本体はすでに存在するため、
	// ここでの失敗は劣化完了として警告に変換する。
	if req.CoverFile != nil {
		if err := c.uploadCover(ctx, token, kind, created.ID, req); err != nil {
			c.metrics.RecordAssetUploadFailure(string(kind))
			c.logger.Warn("カバー画像のアップロードに失敗しました",
				slog.Int64("submission_id", created.ID),
				slog.String("error", err.Error()),
			)
			result.Warning = "投稿は作成されましたが、カバー画像のアップロードに失敗しました。あとから画像を再設定できます。"
		}
	}

	return result, nil
}

// Update は既存投稿を更新する。
//
// 戦略は順序付きで最大2つ: まず直接更新を1回試み、失敗した場合は
// 審査送信を1回試みる。審査送信の成功は投稿をpendingに戻す。
// 両方失敗した場合は最初のエラーのみを返す。
func (c *Coordinator) Update(ctx context.Context, token, userID string, kind model.SubmissionKind, id int64, req *Request) (*Result, error) {
	if !kind.Valid() {
		return nil, model.NewInvalidKindError(string(kind))
	}

	if !c.acquire(userID, kind) {
		return nil, model.NewSubmissionInFlightError()
	}
	defer c.release(userID, kind)

	form := c.sanitizeForm(req.Form)
	form.Kind = kind
	form.HasCoverFile = req.CoverFile != nil

	errs := validator.Validate(validator.StepReview, &form, c.now())
	// 既存投稿はサーバー側でカバー画像を保持しているため、更新時には再要求しない
	delete(errs, "cover_image")
	if len(errs) > 0 {
		return nil, model.NewValidationFailedError(errs)
	}

	payload := c.buildPayload(&form, req)

	_, err := c.api.UpdateSubmission(ctx, token, kind, id, payload)
	if err == nil {
		return &Result{Success: true, ID: id}, nil
	}

	c.metrics.RecordUpdateFallback(string(kind))
	c.logger.Warn("直接更新に失敗したため審査送信を試みます",
		slog.Int64("submission_id", id),
		slog.String("error", err.Error()),
	)

	if _, fallbackErr := c.api.SubmitEditForReview(ctx, token, kind, id, payload); fallbackErr == nil {
		return &Result{
			Success: true,
			ID:      id,
			Warning: "変更内容は審査に送信されました。承認されるまで公開内容は更新されません。",
		}, nil
	}

	// 両方失敗: 呼び出し元には最初のエラーのみを返す
	return nil, err
}

// uploadCover はフェーズ2のファイル添付を実行する。
// クライアント切断でフェーズ2だけが中断されると本体のみの
// 部分状態を外部要因で量産するため、リクエストのキャンセルから
// 切り離した独立タイムアウトで実行する。
func (c *Coordinator) uploadCover(ctx context.Context, token string, kind model.SubmissionKind, id int64, req *Request) error {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.detachedUploadTimeout)
	defer cancel()

	_, err := c.api.UploadCoverAsset(detached, token, kind, id, req.CoverFilename, req.CoverFile)
	return err
}

// sanitizeForm はユーザー入力のテキストフィールドをサニタイズしたコピーを返す。
func (c *Coordinator) sanitizeForm(form model.SubmissionForm) model.SubmissionForm {
	form.Name = c.sanitizer.Sanitize(form.Name)
	form.Description = c.sanitizer.Sanitize(form.Description)
	form.Category = c.sanitizer.Sanitize(form.Category)
	form.Location = c.sanitizer.Sanitize(form.Location)
	form.JobType = c.sanitizer.Sanitize(form.JobType)
	form.SalaryRange = c.sanitizer.Sanitize(form.SalaryRange)
	form.BusinessModel = c.sanitizer.Sanitize(form.BusinessModel)
	return form
}

// buildPayload は検証済みフォームから上流APIペイロードを構築する。
// 数値フィールドは検証を通過しているためパース失敗は0として扱われる。
// カバー画像URLはファイル添付がない場合のみ本体に含める。
func (c *Coordinator) buildPayload(form *model.SubmissionForm, req *Request) *upstream.SubmissionPayload {
	payload := &upstream.SubmissionPayload{
		Name:          form.Name,
		Description:   form.Description,
		Category:      form.Category,
		Location:      form.Location,
		Website:       form.Website,
		BusinessModel: form.BusinessModel,
		Skills:        form.Skills,
		Founders:      namedFounders(req.Founders),
		Tags:          req.Tags,
		SocialLinks:   req.SocialLinks,
	}

	if form.Kind == model.KindStartup {
		payload.EmployeeCount, _ = strconv.Atoi(form.EmployeeCount)
		payload.FoundedYear, _ = strconv.Atoi(form.FoundedYear)
	} else {
		payload.JobType = form.JobType
		payload.CompanyEmail = form.CompanyEmail
		payload.SalaryRange = form.SalaryRange
		payload.ApplicationDeadline = form.ApplicationDeadline
		payload.ExpiresAt = form.ExpiresAt
	}

	if req.CoverFile == nil && form.CoverImageURL != "" {
		payload.CoverImageURL = form.CoverImageURL
	}

	return payload
}

// namedFounders は名前が入力された創業者のみを返す。
// ウィザードの空行はペイロードに含めない。
func namedFounders(founders []model.Founder) []model.Founder {
	var named []model.Founder
	for _, f := range founders {
		if f.Name != "" {
			named = append(named, f)
		}
	}
	return named
}

// acquire は(ユーザー, 種別)の送信スロットを確保する。
// すでに進行中の場合はfalseを返す。
func (c *Coordinator) acquire(userID string, kind model.SubmissionKind) bool {
	key := userID + "/" + string(kind)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.inFlight[key]; exists {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

// release は送信スロットを解放する。
func (c *Coordinator) release(userID string, kind model.SubmissionKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, userID+"/"+string(kind))
}
