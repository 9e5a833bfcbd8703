package moderation

import (
	"reflect"
	"sync"
	"testing"
)

func TestSelectionSet_Toggle(t *testing.T) {
	s := NewSelectionSet()

	if selected := s.Toggle(1); !selected {
		t.Error("初回の Toggle で選択状態にならなかった")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}

	if selected := s.Toggle(1); selected {
		t.Error("2回目の Toggle で選択が解除されなかった")
	}
	if s.Count() != 0 {
		t.Errorf("Count = %d, want 0", s.Count())
	}
}

func TestSelectionSet_SelectAll(t *testing.T) {
	s := NewSelectionSet()
	s.Toggle(5)

	s.SelectAll([]int64{1, 2, 3})

	// 既存の選択は保持され、重複は二重カウントされない
	if s.Count() != 4 {
		t.Errorf("Count = %d, want 4", s.Count())
	}

	s.SelectAll([]int64{2, 3})
	if s.Count() != 4 {
		t.Errorf("重複選択後の Count = %d, want 4", s.Count())
	}
}

func TestSelectionSet_IDs_Sorted(t *testing.T) {
	s := NewSelectionSet()
	s.SelectAll([]int64{30, 10, 20})

	got := s.IDs()
	want := []int64{10, 20, 30}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IDs = %v, want %v", got, want)
	}
}

func TestSelectionSet_Clear(t *testing.T) {
	s := NewSelectionSet()
	s.SelectAll([]int64{1, 2, 3})

	s.Clear()

	if s.Count() != 0 {
		t.Errorf("Clear 後の Count = %d, want 0", s.Count())
	}
	if len(s.IDs()) != 0 {
		t.Errorf("Clear 後の IDs = %v, want 空", s.IDs())
	}
}

func TestSelectionSet_ConcurrentToggle(t *testing.T) {
	s := NewSelectionSet()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Toggle(id)
		}(int64(i))
	}
	wg.Wait()

	if s.Count() != 100 {
		t.Errorf("並行 Toggle 後の Count = %d, want 100", s.Count())
	}
}
