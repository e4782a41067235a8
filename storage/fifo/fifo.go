// Package fifo implements a queue-ordered storage.
// Objects are handed out oldest-idle first, which spreads usage across
// every idle object of a key.
package fifo

import (
	"container/list"

	"github.com/IvanBrykalov/keyedpool/storage"
)

// fifo keeps objects in a doubly linked list (Front = oldest) plus an index
// for O(1) Contains.
type fifo[V comparable] struct {
	l   *list.List
	idx map[V]int // object -> occurrences
}

// New returns an empty FIFO storage.
func New[V comparable]() storage.Storage[V] {
	return &fifo[V]{l: list.New(), idx: make(map[V]int)}
}

// Add enqueues v at the back.
func (q *fifo[V]) Add(v V) {
	q.l.PushBack(v)
	q.idx[v]++
}

// Remove dequeues from the front.
func (q *fifo[V]) Remove() (V, bool) {
	el := q.l.Front()
	if el == nil {
		var zero V
		return zero, false
	}
	q.l.Remove(el)
	v := el.Value.(V)
	if q.idx[v] <= 1 {
		delete(q.idx, v)
	} else {
		q.idx[v]--
	}
	return v, true
}

func (q *fifo[V]) Contains(v V) bool {
	_, ok := q.idx[v]
	return ok
}

func (q *fifo[V]) Len() int { return q.l.Len() }
