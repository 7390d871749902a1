package book

import (
	"slices"
	"sync"
)

// Selection tracks which chapters the user wants generated. It is safe for
// concurrent use since web handlers share it through the session.
type Selection struct {
	mu  sync.RWMutex
	set map[int]struct{}
}

// NewSelection returns a selection holding every chapter index below n.
func NewSelection(n int) *Selection {
	s := &Selection{set: make(map[int]struct{})}
	s.SelectAll(n)
	return s
}

// SelectAll selects chapters 0..n-1 and nothing else.
func (s *Selection) SelectAll(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		s.set[i] = struct{}{}
	}
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = make(map[int]struct{})
}

// Set selects or deselects chapter i.
func (s *Selection) Set(i int, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set == nil {
		s.set = make(map[int]struct{})
	}
	if selected {
		s.set[i] = struct{}{}
		return
	}
	delete(s.set, i)
}

// Toggle flips chapter i and returns its new state.
func (s *Selection) Toggle(i int) bool {
	selected := !s.Contains(i)
	s.Set(i, selected)
	return selected
}

// Contains reports whether chapter i is selected.
func (s *Selection) Contains(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[i]
	return ok
}

// Len returns the number of selected chapters.
func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set)
}

// Indices returns the selected chapter indices in ascending order.
func (s *Selection) Indices() []int {
	s.mu.RLock()
	out := make([]int, 0, len(s.set))
	for i := range s.set {
		out = append(out, i)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}
