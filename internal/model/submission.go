// Package model はドメインモデルを定義する。
package model

import "time"

// SubmissionKind は投稿の種別（スタートアップ / 求人）を表す。
type SubmissionKind string

const (
	// KindStartup はスタートアッププロフィール投稿を表す。
	KindStartup SubmissionKind = "startup"
	// KindJob は求人投稿を表す。
	KindJob SubmissionKind = "job"
)

// Valid は既知の投稿種別かどうかを返す。
func (k SubmissionKind) Valid() bool {
	return k == KindStartup || k == KindJob
}

// SubmissionStatus は投稿の公開ステータスを表す。
// draftはクライアント（ゲートウェイ）側のみの状態であり、
// 上流APIには決して送信されない。
type SubmissionStatus string

const (
	// StatusDraft は未送信の下書き状態。上流には存在しない。
	StatusDraft SubmissionStatus = "draft"
	// StatusPending は審査待ち状態。
	StatusPending SubmissionStatus = "pending"
	// StatusApproved は承認済み（公開中）状態。
	StatusApproved SubmissionStatus = "approved"
	// StatusRejected は却下状態。
	StatusRejected SubmissionStatus = "rejected"
	// StatusInactive は承認後に非公開化された状態。
	StatusInactive SubmissionStatus = "inactive"
	// StatusExpired は掲載期限切れ状態。サーバー側の時間経過でのみ到達する。
	StatusExpired SubmissionStatus = "expired"
)

// Submission はユーザーが投稿したスタートアッププロフィールまたは求人を表す。
// IDは最初の作成成功までは0のまま。
type Submission struct {
	ID       int64
	Kind     SubmissionKind
	Status   SubmissionStatus
	Featured bool // approvedの場合のみ意味を持つ

	Name        string
	Description string
	Category    string
	Location    string

	// スタートアップ固有
	EmployeeCount int
	FoundedYear   int

	// 求人固有
	JobType             string
	CompanyEmail        string
	SalaryRange         string
	ApplicationDeadline *time.Time
	ExpiresAt           *time.Time

	Website       string
	BusinessModel string
	CoverImageURL string

	RejectionReason string
	SubmittedBy     string // サーバーがセッションから設定する
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SubmissionForm はウィザードフォームの入力状態を表す。
// ブラウザのフォーム値をそのまま保持するため、数値・日付項目も
// 文字列のままであり、解釈はValidatorが行う。
type SubmissionForm struct {
	Kind SubmissionKind `json:"kind"`

	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`

	// スタートアップ固有
	EmployeeCount string `json:"employee_count"`
	FoundedYear   string `json:"founded_year"`

	// 求人固有
	JobType             string `json:"job_type"`
	CompanyEmail        string `json:"company_email"`
	SalaryRange         string `json:"salary_range"`
	ApplicationDeadline string `json:"application_deadline"` // "2006-01-02"形式
	ExpiresAt           string `json:"expires_at"`           // "2006-01-02"形式

	Website       string `json:"website"`
	BusinessModel string `json:"business_model"`

	// カバー画像: URL指定かローカルファイル添付のどちらか一方。
	CoverImageURL string `json:"cover_image_url"`
	HasCoverFile  bool   `json:"has_cover_file"`

	Skills []string `json:"skills"`
}

// Founder は投稿に紐付く創業者・チームメンバーを表す。
type Founder struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Bio         string `json:"bio"`
	LinkedinURL string `json:"linkedin_url"`
}

// ModerationAction は管理者が投稿に対して発行する状態遷移操作を表す。
type ModerationAction string

const (
	// ActionApprove は審査待ち投稿を承認する。
	ActionApprove ModerationAction = "approve"
	// ActionReject は審査待ち投稿を却下する。理由を添えられる。
	ActionReject ModerationAction = "reject"
	// ActionFeature は承認済み投稿をおすすめ表示にする。
	ActionFeature ModerationAction = "feature"
	// ActionUnfeature はおすすめ表示を解除する。
	ActionUnfeature ModerationAction = "unfeature"
	// ActionDeactivate は承認済み投稿を非公開化する。
	ActionDeactivate ModerationAction = "deactivate"
)

// Valid は既知のモデレーション操作かどうかを返す。
func (a ModerationAction) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionFeature, ActionUnfeature, ActionDeactivate:
		return true
	default:
		return false
	}
}

// ModerationFilter はモデレーション一覧のフィルタ種別を表す。
type ModerationFilter string

const (
	// FilterAll は全投稿を表示するフィルタ。
	FilterAll ModerationFilter = "all"
	// FilterPending は審査待ちのみを表示するフィルタ。
	FilterPending ModerationFilter = "pending"
	// FilterApproved は承認済みのみを表示するフィルタ。
	FilterApproved ModerationFilter = "approved"
	// FilterFeatured はおすすめ表示のみを表示するフィルタ。
	FilterFeatured ModerationFilter = "featured"
	// FilterRejected は却下済みのみを表示するフィルタ。
	FilterRejected ModerationFilter = "rejected"
	// FilterExpired は期限切れのみを表示するフィルタ。
	FilterExpired ModerationFilter = "expired"
)

// Valid は既知のフィルタかどうかを返す。
func (f ModerationFilter) Valid() bool {
	switch f {
	case FilterAll, FilterPending, FilterApproved, FilterFeatured, FilterRejected, FilterExpired:
		return true
	default:
		return false
	}
}

// User は上流APIが認証したユーザーを表す。
// ゲートウェイはユーザーを自前で管理せず、Bearerトークンの検証結果として受け取る。
type User struct {
	ID      string
	Email   string
	IsAdmin bool
}
