package book

import (
	"slices"
	"testing"
)

func TestSelection(t *testing.T) {
	s := NewSelection(4)
	if s.Len() != 4 {
		t.Fatalf("new selection should hold all chapters, got %d", s.Len())
	}

	if s.Toggle(2) {
		t.Error("toggling a selected chapter should deselect it")
	}
	if !slices.Equal(s.Indices(), []int{0, 1, 3}) {
		t.Errorf("Indices() = %v", s.Indices())
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Clear left %d chapters", s.Len())
	}

	s.Set(3, true)
	s.Set(1, true)
	if !slices.Equal(s.Indices(), []int{1, 3}) {
		t.Errorf("Indices() should be sorted, got %v", s.Indices())
	}

	s.SelectAll(2)
	if s.Contains(3) {
		t.Error("SelectAll should drop indices beyond n")
	}

	var zero Selection
	zero.Set(5, true)
	if !zero.Contains(5) {
		t.Error("zero value selection should be usable")
	}
}
