// Package upstream は掲載プラットフォームAPIのクライアントを提供する。
// 投稿の作成・更新、カバー画像アップロード、モデレーション操作、
// 所有権申請一覧の取得を行う。APIの実体はブラックボックスとして扱い、
// レスポンスのステータスコードを統一エラーフォーマットに変換する。
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hitoshi/startlinker/internal/model"
)

// Client は掲載プラットフォームAPIのHTTPクライアント。
// すべての操作は呼び出し元のBearerトークンをそのまま転送する。
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "startlinker-gateway/1.0")
	return &Client{
		http:   c,
		logger: logger,
	}
}

// SubmissionPayload は投稿作成・更新リクエストのボディ。
// カバー画像はURL指定の場合のみここに含まれ、ローカルファイルは
// 作成成功後にUploadCoverAssetで別途送信される。
type SubmissionPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`

	EmployeeCount int `json:"employee_count,omitempty"`
	FoundedYear   int `json:"founded_year,omitempty"`

	JobType             string `json:"job_type,omitempty"`
	CompanyEmail        string `json:"company_email,omitempty"`
	SalaryRange         string `json:"salary_range,omitempty"`
	ApplicationDeadline string `json:"application_deadline,omitempty"`
	ExpiresAt           string `json:"expires_at,omitempty"`

	Website       string `json:"website,omitempty"`
	BusinessModel string `json:"business_model,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`

	Skills      []string          `json:"skills,omitempty"`
	Founders    []model.Founder   `json:"founders,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
}

// CreateResult は投稿作成レスポンス。
type CreateResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// UpdateResult は投稿更新レスポンス。
type UpdateResult struct {
	Status string `json:"status"`
}

// AssetResult はカバー画像アップロードレスポンス。
type AssetResult struct {
	AssetURL string `json:"cover_image_url"`
}

// StatusCounts はモデレーション一覧のサーバー算出ステータス別件数。
// ページネーションの影響を受けないよう、クライアント側では再集計しない。
type StatusCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Featured int `json:"featured"`
	Rejected int `json:"rejected"`
	Expired  int `json:"expired"`
}

// ListResult はモデレーション一覧レスポンス。
type ListResult struct {
	Items  []model.Submission
	Counts StatusCounts
}

// BulkResult は一括モデレーション操作の集約結果。
// サーバーが件数を返さない場合は両フィールドとも0のまま。
type BulkResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ClaimCounts は所有権申請一覧のサーバー算出ステータス別件数。
type ClaimCounts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Expired  int `json:"expired"`
}

// ClaimListResult は所有権申請一覧レスポンス。
type ClaimListResult struct {
	Claims []model.Claim
	Counts ClaimCounts
}

// submissionRecord は一覧レスポンス内の投稿のワイヤ表現。
type submissionRecord struct {
	ID                  int64      `json:"id"`
	Status              string     `json:"status"`
	IsFeatured          bool       `json:"is_featured"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	Category            string     `json:"category"`
	Location            string     `json:"location"`
	EmployeeCount       int        `json:"employee_count"`
	FoundedYear         int        `json:"founded_year"`
	JobType             string     `json:"job_type"`
	CompanyEmail        string     `json:"company_email"`
	SalaryRange         string     `json:"salary_range"`
	ApplicationDeadline *time.Time `json:"application_deadline"`
	ExpiresAt           *time.Time `json:"expires_at"`
	Website             string     `json:"website"`
	BusinessModel       string     `json:"business_model"`
	CoverImageURL       string     `json:"cover_image_url"`
	RejectionReason     string     `json:"rejection_reason"`
	SubmittedBy         string     `json:"submitted_by"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (rec *submissionRecord) toModel(kind model.SubmissionKind) model.Submission {
	return model.Submission{
		ID:                  rec.ID,
		Kind:                kind,
		Status:              model.SubmissionStatus(rec.Status),
		Featured:            rec.IsFeatured,
		Name:                rec.Name,
		Description:         rec.Description,
		Category:            rec.Category,
		Location:            rec.Location,
		EmployeeCount:       rec.EmployeeCount,
		FoundedYear:         rec.FoundedYear,
		JobType:             rec.JobType,
		CompanyEmail:        rec.CompanyEmail,
		SalaryRange:         rec.SalaryRange,
		ApplicationDeadline: rec.ApplicationDeadline,
		ExpiresAt:           rec.ExpiresAt,
		Website:             rec.Website,
		BusinessModel:       rec.BusinessModel,
		CoverImageURL:       rec.CoverImageURL,
		RejectionReason:     rec.RejectionReason,
		SubmittedBy:         rec.SubmittedBy,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

// claimRecord は所有権申請のワイヤ表現。
// 検証・ドメイン一致の各インジケータはサーバー算出値をそのまま写し取る。
type claimRecord struct {
	ID               int64      `json:"id"`
	StartupID        int64      `json:"startup_id"`
	StartupName      string     `json:"startup_name"`
	Email            string     `json:"email"`
	Position         string     `json:"position"`
	Reason           string     `json:"reason"`
	EmailVerified    bool       `json:"email_verified"`
	StartupDomain    string     `json:"startup_domain"`
	EmailDomainValid *bool      `json:"email_domain_valid"`
	Status           string     `json:"status"`
	ReviewNotes      string     `json:"review_notes"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

func (rec *claimRecord) toModel() model.Claim {
	return model.Claim{
		ID:               rec.ID,
		StartupID:        rec.StartupID,
		StartupName:      rec.StartupName,
		Email:            rec.Email,
		Position:         rec.Position,
		Reason:           rec.Reason,
		EmailVerified:    rec.EmailVerified,
		StartupDomain:    rec.StartupDomain,
		EmailDomainValid: rec.EmailDomainValid,
		Status:           model.ClaimStatus(rec.Status),
		ReviewNotes:      rec.ReviewNotes,
		CreatedAt:        rec.CreatedAt,
		ExpiresAt:        rec.ExpiresAt,
	}
}

// kindPath は投稿種別をAPIパスセグメントに変換する。
func kindPath(kind model.SubmissionKind) string {
	if kind == model.KindJob {
		return "jobs"
	}
	return "startups"
}

// Me はBearerトークンを検証し、認証済みユーザーを返す。
// トークンが無効な場合は認証エラーを返す。
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	var result struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&result).
		Get("/api/auth/me/")
	if err != nil {
		return nil, c.transportError("me", err)
	}
	if resp.IsError() {
		return nil, c.statusError("me", resp, 0)
	}

	return &model.User{ID: result.ID, Email: result.Email, IsAdmin: result.IsAdmin}, nil
}

// CreateSubmission は投稿を新規作成する（コミットのフェーズ1）。
// 成功時にサーバー採番のIDを返す。失敗時は部分状態を残さない。
func (c *Client) CreateSubmission(ctx context.Context, token string, kind model.SubmissionKind, payload *SubmissionPayload) (*CreateResult, error) {
	var result CreateResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(&result).
		Post(fmt.Sprintf("/api/%s/", kindPath(kind)))
	if err != nil {
		return nil, c.transportError("create_submission", err)
	}
	if resp.IsError() {
		return nil, c.statusError("create_submission", resp, 0)
	}

	return &result, nil
}

// UpdateSubmission は投稿を直接更新する。
func (c *Client) UpdateSubmission(ctx context.Context, token string, kind model.SubmissionKind, id int64, payload *SubmissionPayload) (*UpdateResult, error) {
	var result UpdateResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(&result).
		Put(fmt.Sprintf("/api/%s/%d/", kindPath(kind), id))
	if err != nil {
		return nil, c.transportError("update_submission", err)
	}
	if resp.IsError() {
		return nil, c.statusError("update_submission", resp, id)
	}

	return &result, nil
}

// SubmitEditForReview は直接更新の代替として編集内容を審査キューに送る。
// 成功時、投稿のステータスはpendingに戻る。
func (c *Client) SubmitEditForReview(ctx context.Context, token string, kind model.SubmissionKind, id int64, payload *SubmissionPayload) (*UpdateResult, error) {
	var result UpdateResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(&result).
		Post(fmt.Sprintf("/api/%s/%d/submit_edit/", kindPath(kind), id))
	if err != nil {
		return nil, c.transportError("submit_edit", err)
	}
	if resp.IsError() {
		return nil, c.statusError("submit_edit", resp, id)
	}

	return &result, nil
}

// UploadCoverAsset はカバー画像ファイルを投稿に添付する（コミットのフェーズ2）。
// フェーズ1の成功確認後にのみ呼び出すこと。
func (c *Client) UploadCoverAsset(ctx context.Context, token string, kind model.SubmissionKind, id int64, filename string, file io.Reader) (*AssetResult, error) {
	var result AssetResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetFileReader("cover_image", filename, file).
		SetResult(&result).
		Post(fmt.Sprintf("/api/%s/%d/upload_cover_image/", kindPath(kind), id))
	if err != nil {
		return nil, c.transportError("upload_cover_asset", err)
	}
	if resp.IsError() {
		return nil, c.statusError("upload_cover_asset", resp, id)
	}

	return &result, nil
}

// ListSubmissions はモデレーション一覧をフィルタ・検索語付きで取得する。
// 件数はサーバー算出値をそのまま返す。
func (c *Client) ListSubmissions(ctx context.Context, token string, kind model.SubmissionKind, filter model.ModerationFilter, search string) (*ListResult, error) {
	var result struct {
		Results []submissionRecord `json:"results"`
		Counts  StatusCounts       `json:"counts"`
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("filter", string(filter)).
		SetResult(&result)
	if search != "" {
		req.SetQueryParam("search", search)
	}

	resp, err := req.Get(fmt.Sprintf("/api/%s/admin/", kindPath(kind)))
	if err != nil {
		return nil, c.transportError("list_submissions", err)
	}
	if resp.IsError() {
		return nil, c.statusError("list_submissions", resp, 0)
	}

	items := make([]model.Submission, len(result.Results))
	for i := range result.Results {
		items[i] = result.Results[i].toModel(kind)
	}

	return &ListResult{Items: items, Counts: result.Counts}, nil
}

// ApplyModerationAction は単一投稿へのモデレーション操作を実行する。
// 対象がすでに目標状態にある場合、サーバーはno-opとして成功を返す。
func (c *Client) ApplyModerationAction(ctx context.Context, token string, kind model.SubmissionKind, id int64, action model.ModerationAction, reason string) error {
	body := map[string]string{"action": string(action)}
	if reason != "" {
		body["reason"] = reason
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		Post(fmt.Sprintf("/api/%s/%d/admin/", kindPath(kind), id))
	if err != nil {
		return c.transportError("apply_moderation_action", err)
	}
	if resp.IsError() {
		return c.statusError("apply_moderation_action", resp, id)
	}

	return nil
}

// ApplyBulkModerationAction は複数投稿への一括モデレーション操作を実行する。
// 1回の呼び出しで全IDを送信する。部分失敗の内訳はBulkResultに集約される。
func (c *Client) ApplyBulkModerationAction(ctx context.Context, token string, kind model.SubmissionKind, ids []int64, action model.ModerationAction, reason string) (*BulkResult, error) {
	var result BulkResult

	body := map[string]any{
		"ids":    ids,
		"action": string(action),
	}
	if reason != "" {
		body["reason"] = reason
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/api/%s/bulk-admin/", kindPath(kind)))
	if err != nil {
		return nil, c.transportError("apply_bulk_moderation_action", err)
	}
	if resp.IsError() {
		return nil, c.statusError("apply_bulk_moderation_action", resp, 0)
	}

	return &result, nil
}

// ListClaims は所有権申請一覧をフィルタ付きで取得する。
// 件数はサーバー算出値をそのまま返す。
func (c *Client) ListClaims(ctx context.Context, token string, status model.ClaimStatus) (*ClaimListResult, error) {
	var result struct {
		Results []claimRecord `json:"results"`
		Counts  ClaimCounts   `json:"counts"`
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&result)
	if status != "" {
		req.SetQueryParam("status", string(status))
	}

	resp, err := req.Get("/api/claims/")
	if err != nil {
		return nil, c.transportError("list_claims", err)
	}
	if resp.IsError() {
		return nil, c.statusError("list_claims", resp, 0)
	}

	claims := make([]model.Claim, len(result.Results))
	for i := range result.Results {
		claims[i] = result.Results[i].toModel()
	}

	return &ClaimListResult{Claims: claims, Counts: result.Counts}, nil
}

// transportError は通信レベルの失敗を統一エラーに変換する。
// 生のエラーはログにのみ記録し、ユーザーには表示しない。
func (c *Client) transportError(op string, err error) error {
	c.logger.Error("上流APIとの通信に失敗しました",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return model.NewUpstreamUnavailableError()
}

// statusError はエラーステータスコードを統一エラーに変換する。
// 401/403は認証エラー、404は未検出、4xxは拒否、それ以外は一時的失敗として扱う。
func (c *Client) statusError(op string, resp *resty.Response, id int64) error {
	c.logger.Warn("上流APIがエラーステータスを返しました",
		slog.String("operation", op),
		slog.Int("http_status", resp.StatusCode()),
	)

	switch {
	case resp.StatusCode() == 401:
		return model.NewUnauthorizedError()
	case resp.StatusCode() == 403:
		return model.NewForbiddenError()
	case resp.StatusCode() == 404:
		return model.NewSubmissionNotFoundError(id)
	case resp.StatusCode() >= 400 && resp.StatusCode() < 500:
		return model.NewUpstreamRejectedError(extractDetail(resp.Body()))
	default:
		return model.NewUpstreamUnavailableError()
	}
}

// extractDetail はエラーレスポンスボディから診断用メッセージを取り出す。
// 既知のフィールド（detail / error）のどちらかが存在すればそれを返す。
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}
