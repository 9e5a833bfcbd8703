// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/startlinker/internal/model"
)

// DraftRepository は下書きスナップショットの永続化インターフェース。
// (user_id, kind) ごとに1スロットのキーバリューストアとして振る舞う。
// 有効期限は設けない（明示的な上書きまたは削除まで保持する）。
type DraftRepository interface {
	// Save はスナップショットのJSONバイト列を冪等にUPSERTする。
	Save(ctx context.Context, userID string, kind model.SubmissionKind, snapshot []byte) error

	// Find は最後に保存されたスナップショットを返す。見つからない場合はnilを返す。
	Find(ctx context.Context, userID string, kind model.SubmissionKind) ([]byte, error)

	// Delete は指定スロットの下書きを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, userID string, kind model.SubmissionKind) error
}
