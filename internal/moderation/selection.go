package moderation

import (
	"sort"
	"sync"
)

// SelectionSet は一括操作の対象として選択された投稿IDの集合。
// 管理者ごとに1つ保持され、並行アクセスに対して安全。
type SelectionSet struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewSelectionSet は空のSelectionSetを生成する。
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[int64]struct{})}
}

// Toggle はIDの選択状態を反転し、反転後の選択状態を返す。
func (s *SelectionSet) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, selected := s.ids[id]; selected {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll は指定された全IDを選択に追加する。
// 表示中の一覧に対する全選択に使用する。
func (s *SelectionSet) SelectAll(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Clear は選択をすべて解除する。
func (s *SelectionSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int64]struct{})
}

// IDs は選択中のIDを昇順で返す。
func (s *SelectionSet) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count は選択中の件数を返す。
func (s *SelectionSet) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
