package moderation

import (
	"context"
	"log/slog"

	"github.com/hitoshi/startlinker/internal/metrics"
	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/upstream"
)

// UpstreamAPI はモデレーションが必要とする上流API操作のインターフェース。
type UpstreamAPI interface {
	ListSubmissions(ctx context.Context, token string, kind model.SubmissionKind, filter model.ModerationFilter, search string) (*upstream.ListResult, error)
	ApplyModerationAction(ctx context.Context, token string, kind model.SubmissionKind, id int64, action model.ModerationAction, reason string) error
	ApplyBulkModerationAction(ctx context.Context, token string, kind model.SubmissionKind, ids []int64, action model.ModerationAction, reason string) (*upstream.BulkResult, error)
}

// Dashboard はモデレーション一覧の表示データ。
// 件数インジケータはページネーションの影響を受けない
// サーバー算出値をそのまま保持する。
type Dashboard struct {
	Items  []model.Submission    `json:"items"`
	Counts upstream.StatusCounts `json:"counts"`
}

// BulkOutcome は一括操作の結果と操作後の最新一覧。
type BulkOutcome struct {
	Updated   int        `json:"updated"`
	Failed    int        `json:"failed"`
	Dashboard *Dashboard `json:"dashboard"`
}

// Engine はモデレーション操作の実装。
// 操作の成功はローカルの状態書き換えではなく一覧の再取得で反映する。
type Engine struct {
	api     UpstreamAPI
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewEngine はEngineの新しいインスタンスを生成する。
func NewEngine(api UpstreamAPI, collector metrics.MetricsCollector, logger *slog.Logger) *Engine {
	return &Engine{
		api:     api,
		metrics: collector,
		logger:  logger,
	}
}

// List はモデレーション一覧を取得する。
// 不明なフィルタはローカルで拒否される。
func (e *Engine) List(ctx context.Context, token string, kind model.SubmissionKind, filter model.ModerationFilter, search string) (*Dashboard, error) {
	if !kind.Valid() {
		return nil, model.NewInvalidKindError(string(kind))
	}
	if !filter.Valid() {
		return nil, model.NewInvalidFilterError(string(filter))
	}

	result, err := e.api.ListSubmissions(ctx, token, kind, filter, search)
	if err != nil {
		return nil, err
	}

	return &Dashboard{Items: result.Items, Counts: result.Counts}, nil
}

// ApplyAction は単一投稿へのモデレーション操作を実行し、
// 操作後の最新一覧を返す。
//
// 現在の状態に対して許可されていない操作は上流APIを呼ぶ前に
// ローカルで拒否される。ただし到達先が現在の状態と同じ再適用は
// no-opとしてそのまま上流に渡される。currentStatusとfeaturedは
// 一覧に表示中の投稿の状態であり、判定はその状態を基準に行う。
func (e *Engine) ApplyAction(ctx context.Context, token string, kind model.SubmissionKind, id int64, currentStatus model.SubmissionStatus, featured bool, action model.ModerationAction, reason string, filter model.ModerationFilter, search string) (*Dashboard, error) {
	if !kind.Valid() {
		return nil, model.NewInvalidKindError(string(kind))
	}
	if !action.Valid() {
		return nil, model.NewIllegalTransitionError(currentStatus, featured, action)
	}

	state := StateOf(currentStatus, featured)
	if !CanApply(state, action) {
		return nil, model.NewIllegalTransitionError(currentStatus, featured, action)
	}

	if err := e.api.ApplyModerationAction(ctx, token, kind, id, action, reason); err != nil {
		return nil, err
	}
	e.metrics.RecordModerationAction(string(action))

	e.logger.Info("モデレーション操作を実行しました",
		slog.String("kind", string(kind)),
		slog.Int64("submission_id", id),
		slog.String("action", string(action)),
	)

	// ローカルの状態書き換えは行わず、一覧を再取得して反映する
	return e.List(ctx, token, kind, filter, search)
}

// ApplyBulkAction は選択中の全投稿への一括モデレーション操作を実行する。
//
// 全IDは1回の呼び出しで送信され、部分失敗は集約結果として返される。
// 選択は操作の成否にかかわらず必ず解除される。
func (e *Engine) ApplyBulkAction(ctx context.Context, token string, kind model.SubmissionKind, selection *SelectionSet, action model.ModerationAction, reason string, filter model.ModerationFilter, search string) (*BulkOutcome, error) {
	if !kind.Valid() {
		return nil, model.NewInvalidKindError(string(kind))
	}

	// 成否にかかわらず選択は解除する
	defer selection.Clear()

	if selection.Count() == 0 {
		return nil, model.NewEmptySelectionError()
	}
	ids := selection.IDs()

	result, err := e.api.ApplyBulkModerationAction(ctx, token, kind, ids, action, reason)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordModerationAction(string(action))
	e.metrics.RecordBulkSelectionSize(len(ids))

	e.logger.Info("一括モデレーション操作を実行しました",
		slog.String("kind", string(kind)),
		slog.String("action", string(action)),
		slog.Int("selected", len(ids)),
		slog.Int("updated", result.Updated),
		slog.Int("failed", result.Failed),
	)

	dashboard, err := e.List(ctx, token, kind, filter, search)
	if err != nil {
		return nil, err
	}

	return &BulkOutcome{
		Updated:   result.Updated,
		Failed:    result.Failed,
		Dashboard: dashboard,
	}, nil
}
