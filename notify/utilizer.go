// Package notify broadcasts "this object is gone for good" announcements
// between pool components.
//
// A component that permanently removes an object (a pool item disposing it,
// the eviction sweep dropping it, a failed reset) calls Utilize. Every other
// component that keeps auxiliary state about pooled objects subscribes and
// purges that state. The reporter identity travels with the event so a
// listener can ignore its own announcements.
package notify

import "sync"

// Event is one removal announcement.
type Event[K comparable, V any] struct {
	Key    K
	Object V
	// Reporter is the component that announced the removal.
	Reporter any
}

// Listener receives events synchronously on the announcing goroutine.
type Listener[K comparable, V any] func(Event[K, V])

// Utilizer is an in-process synchronous fan-out hub. The zero value is ready
// to use. Safe for concurrent use.
type Utilizer[K comparable, V any] struct {
	mu        sync.RWMutex
	next      uint64
	listeners []subscription[K, V]
}

type subscription[K comparable, V any] struct {
	id uint64
	fn Listener[K, V]
}

// New returns an empty Utilizer.
func New[K comparable, V any]() *Utilizer[K, V] { return &Utilizer[K, V]{} }

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (u *Utilizer[K, V]) Subscribe(fn Listener[K, V]) (unsubscribe func()) {
	u.mu.Lock()
	u.next++
	id := u.next
	u.listeners = append(u.listeners, subscription[K, V]{id: id, fn: fn})
	u.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { u.remove(id) })
	}
}

func (u *Utilizer[K, V]) remove(id uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, s := range u.listeners {
		if s.id == id {
			// Copy instead of in-place delete: snapshots handed to in-flight
			// Utilize calls must stay intact.
			ls := make([]subscription[K, V], 0, len(u.listeners)-1)
			ls = append(ls, u.listeners[:i]...)
			u.listeners = append(ls, u.listeners[i+1:]...)
			return
		}
	}
}

// Utilize announces that obj under key is gone, calling every listener in
// subscription order. Listeners run outside the hub lock, so they may
// subscribe, unsubscribe or announce further removals.
func (u *Utilizer[K, V]) Utilize(key K, obj V, reporter any) {
	u.mu.RLock()
	ls := u.listeners
	u.mu.RUnlock()

	ev := Event[K, V]{Key: key, Object: obj, Reporter: reporter}
	for _, s := range ls {
		s.fn(ev)
	}
}

// Len returns the number of active listeners.
func (u *Utilizer[K, V]) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.listeners)
}
