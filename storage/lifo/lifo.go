// Package lifo implements a stack-ordered storage.
// The most recently returned object is handed out first, which keeps a small
// warm working set and lets the rest go idle (and be evicted).
package lifo

import "github.com/IvanBrykalov/keyedpool/storage"

type lifo[V comparable] struct {
	items []V
	idx   map[V]int // object -> occurrences
}

// New returns an empty LIFO storage.
func New[V comparable]() storage.Storage[V] {
	return &lifo[V]{idx: make(map[V]int)}
}

// Add pushes v on top.
func (s *lifo[V]) Add(v V) {
	s.items = append(s.items, v)
	s.idx[v]++
}

// Remove pops the top element.
func (s *lifo[V]) Remove() (V, bool) {
	var zero V
	n := len(s.items)
	if n == 0 {
		return zero, false
	}
	v := s.items[n-1]
	s.items[n-1] = zero // drop the reference for the GC
	s.items = s.items[:n-1]
	if s.idx[v] <= 1 {
		delete(s.idx, v)
	} else {
		s.idx[v]--
	}
	return v, true
}

func (s *lifo[V]) Contains(v V) bool {
	_, ok := s.idx[v]
	return ok
}

func (s *lifo[V]) Len() int { return len(s.items) }
