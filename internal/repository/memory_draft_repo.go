package repository

import (
	"context"
	"sync"

	"github.com/hitoshi/startlinker/internal/model"
)

// MemoryDraftRepo はメモリ上に下書きを保持するDraftRepository実装。
// テストおよび永続化不要な環境向け。
type MemoryDraftRepo struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemoryDraftRepo はMemoryDraftRepoを生成する。
func NewMemoryDraftRepo() *MemoryDraftRepo {
	return &MemoryDraftRepo{
		store: make(map[string][]byte),
	}
}

func draftKey(userID string, kind model.SubmissionKind) string {
	return userID + "/" + string(kind)
}

// Save はスナップショットを冪等に上書き保存する。
func (r *MemoryDraftRepo) Save(ctx context.Context, userID string, kind model.SubmissionKind, snapshot []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 呼び出し元のバッファ使い回しから保護するためコピーして保持する
	buf := make([]byte, len(snapshot))
	copy(buf, snapshot)
	r.store[draftKey(userID, kind)] = buf
	return nil
}

// Find は最後に保存されたスナップショットを返す。見つからない場合はnilを返す。
func (r *MemoryDraftRepo) Find(ctx context.Context, userID string, kind model.SubmissionKind) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.store[draftKey(userID, kind)]
	if !ok {
		return nil, nil
	}
	buf := make([]byte, len(snapshot))
	copy(buf, snapshot)
	return buf, nil
}

// Delete は指定スロットの下書きを削除する。存在しない場合もエラーにしない。
func (r *MemoryDraftRepo) Delete(ctx context.Context, userID string, kind model.SubmissionKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store, draftKey(userID, kind))
	return nil
}
