// Package draft は投稿ウィザードの下書き保存・復元機能を提供する。
//
// 下書きは(ユーザー, 投稿種別)ごとに1スロットで保持され、
// 保存のたびに上書きされる。有効期限はない。
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/startlinker/internal/model"
	"github.com/hitoshi/startlinker/internal/repository"
)

// Service は下書きの保存・復元・破棄を行う。
type Service struct {
	repo   repository.DraftRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.DraftRepository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Save は下書きスナップショットを保存する。
// 既存の下書きがあれば上書きし、保存時刻を記録する。
func (s *Service) Save(ctx context.Context, userID string, kind model.SubmissionKind, snapshot *model.DraftSnapshot) error {
	snapshot.SavedAt = s.now()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("下書きのシリアライズに失敗しました: %w", err)
	}

	if err := s.repo.Save(ctx, userID, kind, data); err != nil {
		return err
	}

	s.logger.Debug("下書きを保存しました",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
	)
	return nil
}

// Load は保存済みの下書きを復元する。
// 下書きが存在しない場合は(nil, nil)を返す。
// スナップショットが破損して復元できない場合も「下書きなし」として扱い、
// 破損した行を破棄する。UIにエラーを返すことはない。
func (s *Service) Load(ctx context.Context, userID string, kind model.SubmissionKind) (*model.DraftSnapshot, error) {
	data, err := s.repo.Find(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var snapshot model.DraftSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Warn("破損した下書きを破棄します",
			slog.String("user_id", userID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		if delErr := s.repo.Delete(ctx, userID, kind); delErr != nil {
			s.logger.Warn("破損した下書きの削除に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, nil
	}

	return &snapshot, nil
}

// Clear は保存済みの下書きを破棄する。下書きが存在しなくてもエラーにならない。
func (s *Service) Clear(ctx context.Context, userID string, kind model.SubmissionKind) error {
	return s.repo.Delete(ctx, userID, kind)
}
