package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 生のトランスポートエラーをそのままユーザーに見せないためのラッパー。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, submission, moderation, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // フィールド別エラー（バリデーション時のみ）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeSubmissionNotFound  = "SUBMISSION_NOT_FOUND"
	ErrCodeSubmissionInFlight  = "SUBMISSION_IN_FLIGHT"
	ErrCodeInvalidKind         = "INVALID_KIND"
	ErrCodeInvalidImageURL     = "INVALID_IMAGE_URL"
	ErrCodeIllegalTransition   = "ILLEGAL_TRANSITION"
	ErrCodeEmptySelection      = "EMPTY_SELECTION"
	ErrCodeInvalidFilter       = "INVALID_FILTER"
	ErrCodeUpstreamRejected    = "UPSTREAM_REJECTED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// NewUnauthorizedError は認証エラーを生成する。自動リトライは行わない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してから再度お試しください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "権限のあるアカウントでログインしてください。",
	}
}

// NewValidationFailedError はフィールド別エラーマップ付きのバリデーションエラーを生成する。
// ネットワーク層には到達せず、クライアント側で完結する。
func NewValidationFailedError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "エラーの表示された項目を修正してから再度お試しください。",
		Fields:   fields,
	}
}

// NewSubmissionNotFoundError は投稿未検出エラーを生成する。操作は中断され、リトライしない。
func NewSubmissionNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %d", id),
		Category: "submission",
		Action:   "一覧ページに戻って投稿を確認してください。",
	}
}

// NewSubmissionInFlightError は送信中の二重送信を拒否するエラーを生成する。
// 先行リクエストのキューイングは行わない。
func NewSubmissionInFlightError() *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionInFlight,
		Message:  "この投稿は現在送信処理中です。",
		Category: "submission",
		Action:   "処理が完了するまでお待ちください。",
	}
}

// NewInvalidKindError は未知の投稿種別エラーを生成する。
func NewInvalidKindError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidKind,
		Message:  fmt.Sprintf("無効な投稿種別です: %s", kind),
		Category: "validation",
		Action:   "投稿種別には startup または job を指定してください。",
	}
}

// NewInvalidImageURLError はカバー画像URLの検証エラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("カバー画像URLが無効です: %s", reason),
		Category: "validation",
		Action:   "公開されている画像のURL（httpsで始まるもの）を指定してください。",
	}
}

// NewIllegalTransitionError は遷移表にないモデレーション操作のエラーを生成する。
// ネットワーク呼び出しの前にクライアント側で拒否される。
func NewIllegalTransitionError(from SubmissionStatus, featured bool, action ModerationAction) *APIError {
	state := string(from)
	if from == StatusApproved && featured {
		state = "featured"
	}
	return &APIError{
		Code:     ErrCodeIllegalTransition,
		Message:  fmt.Sprintf("現在のステータス（%s）に対して操作 %s は実行できません。", state, action),
		Category: "moderation",
		Action:   "一覧を更新して最新のステータスを確認してください。",
	}
}

// NewEmptySelectionError は選択なしでの一括操作エラーを生成する。
func NewEmptySelectionError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptySelection,
		Message:  "一括操作の対象が選択されていません。",
		Category: "moderation",
		Action:   "操作対象の投稿を1件以上選択してください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "フィルタには all、pending、approved、featured、rejected、expired のいずれかを指定してください。",
	}
}

// NewUpstreamRejectedError は上流APIがリクエストを拒否した場合のエラーを生成する。
// detailにはサーバーが返した診断用メッセージを渡す（空でもよい）。
func NewUpstreamRejectedError(detail string) *APIError {
	msg := "サーバーがリクエストを受け付けませんでした。"
	if detail != "" {
		msg = fmt.Sprintf("%s（%s）", msg, detail)
	}
	return &APIError{
		Code:     ErrCodeUpstreamRejected,
		Message:  msg,
		Category: "submission",
		Action:   "入力内容を確認してから再度お試しください。",
	}
}

// NewUpstreamUnavailableError は一時的な通信失敗のエラーを生成する。
// 自動リトライループは存在せず、ユーザーの手動再試行に委ねる。
func NewUpstreamUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  "サーバーとの通信に失敗しました。",
		Category: "system",
		Action:   "接続状態を確認し、しばらく待ってから再度お試しください。",
	}
}
