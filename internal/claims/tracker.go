// Package claims はスタートアップ所有権申請の閲覧機能を提供する。
//
// 申請の状態はすべて上流APIが管理する。ゲートウェイは読み取り専用で、
// クライアント側からの書き込みは一切行わない。
package claims

import (
	"context"
	"log/slog"

	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/upstream"
)

// UpstreamAPI は申請閲覧が必要とする上流API操作のインターフェース。
type UpstreamAPI interface {
	ListClaims(ctx context.Context, token string, status model.ClaimStatus) (*upstream.ClaimListResult, error)
}

// ClaimView は申請1件の表示データ。
// 表示ステージは申請ステータスとメール検証状態から導出される。
type ClaimView struct {
	Claim model.Claim      `json:"claim"`
	Stage model.ClaimStage `json:"stage"`
}

// Overview は申請一覧の表示データ。
// 件数はサーバー算出値をそのまま保持する。
type Overview struct {
	Claims []ClaimView          `json:"claims"`
	Counts upstream.ClaimCounts `json:"counts"`
}

// Tracker は申請一覧の取得を行う。
type Tracker struct {
	api    UpstreamAPI
	logger *slog.Logger
}

// NewTracker はTrackerの新しいインスタンスを生成する。
func NewTracker(api UpstreamAPI, logger *slog.Logger) *Tracker {
	return &Tracker{
		api:    api,
		logger: logger,
	}
}

// List は申請一覧をフィルタ付きで取得する。
// statusが空の場合は全申請を返す。不明なステータスはローカルで拒否される。
func (t *Tracker) List(ctx context.Context, token string, status model.ClaimStatus) (*Overview, error) {
	if status != "" && !status.Valid() {
		return nil, model.NewInvalidFilterError(string(status))
	}

	result, err := t.api.ListClaims(ctx, token, status)
	if err != nil {
		return nil, err
	}

	views := make([]ClaimView, len(result.Claims))
	for i := range result.Claims {
		views[i] = ClaimView{
			Claim: result.Claims[i],
			Stage: result.Claims[i].Stage(),
		}
	}

	return &Overview{Claims: views, Counts: result.Counts}, nil
}
