package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/startlinker/internal/model"
)

// PostgresDraftRepo はPostgreSQLを使用した下書きリポジトリ。
type PostgresDraftRepo struct {
	db *sql.DB
}

// NewPostgresDraftRepo はPostgresDraftRepoを生成する。
func NewPostgresDraftRepo(db *sql.DB) *PostgresDraftRepo {
	return &PostgresDraftRepo{db: db}
}

// Save はスナップショットを冪等にUPSERTする。
// 同一 (user_id, kind) のスロットが既に存在する場合は上書きする。
func (r *PostgresDraftRepo) Save(ctx context.Context, userID string, kind model.SubmissionKind, snapshot []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (id, user_id, kind, snapshot, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id, kind)
		 DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		uuid.New().String(), userID, string(kind), snapshot,
	)
	if err != nil {
		return fmt.Errorf("下書きの保存に失敗しました: %w", err)
	}
	return nil
}

// Find は最後に保存されたスナップショットを返す。見つからない場合はnilを返す。
func (r *PostgresDraftRepo) Find(ctx context.Context, userID string, kind model.SubmissionKind) ([]byte, error) {
	var snapshot []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT snapshot FROM drafts WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	).Scan(&snapshot)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("下書きの取得に失敗しました: %w", err)
	}

	return snapshot, nil
}

// Delete は指定スロットの下書きを削除する。存在しない場合もエラーにしない。
func (r *PostgresDraftRepo) Delete(ctx context.Context, userID string, kind model.SubmissionKind) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	)
	if err != nil {
		return fmt.Errorf("下書きの削除に失敗しました: %w", err)
	}
	return nil
}
