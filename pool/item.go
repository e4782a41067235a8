package pool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/keyedpool/storage"
)

// item holds every object of one key.
//
// Invariants (under mu):
//   - a known object is either in available or in busy, never both;
//   - available.Len()+len(busy) <= maxCount when maxCount > 0;
//   - toKill only holds known objects; they are disposed the next time an
//     operation meets them.
type item[K comparable, V comparable] struct {
	key K
	env *env[K, V]
	log *zap.Logger

	maxCount     int
	exclusive    bool // markObtainedAsUnavailable
	throwOnLimit bool

	mu        sync.Mutex
	available storage.Storage[V]
	busy      map[V]struct{}
	toKill    map[V]struct{}
}

func newItem[K comparable, V comparable](key K, s StorageSettings, e *env[K, V], log *zap.Logger) *item[K, V] {
	return &item[K, V]{
		key:          key,
		env:          e,
		log:          log,
		maxCount:     s.MaxCountPerKey,
		exclusive:    s.ExclusiveUse,
		throwOnLimit: s.ThrowOnLimit,
		available:    newStorage[V](s.Strategy),
		busy:         make(map[V]struct{}),
		toKill:       make(map[V]struct{}),
	}
}

// tryObtain hands out a live available object, or creates one when create is
// non-nil and the key has room.
func (it *item[K, V]) tryObtain(create CreateFunc[K, V]) (V, bool, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	v, ok := it.provideExisting()
	if ok {
		it.env.metrics.Reused()
	} else {
		var err error
		v, ok, err = it.provideNew(create)
		if err != nil || !ok {
			return v, false, err
		}
		it.env.metrics.Created()
	}

	if it.exclusive {
		it.busy[v] = struct{}{}
	} else {
		it.available.Add(v)
	}
	return v, true, nil
}

// provideExisting drains available until it meets an object worth handing out.
func (it *item[K, V]) provideExisting() (V, bool) {
	for {
		v, ok := it.available.Remove()
		if !ok {
			return v, false
		}
		if !it.killIfUnusable(v) {
			return v, true
		}
	}
}

func (it *item[K, V]) provideNew(create CreateFunc[K, V]) (V, bool, error) {
	var zero V
	if create == nil {
		return zero, false, nil
	}
	if it.maxCount > 0 && it.available.Len()+len(it.busy) >= it.maxCount {
		if it.throwOnLimit {
			return zero, false, &Error{
				Kind:    ErrCapacityExceeded,
				Key:     it.key,
				Create:  fmt.Sprintf("%p", create),
				Message: fmt.Sprintf("%d objects already exist", it.maxCount),
			}
		}
		return zero, false, nil
	}

	v, err := it.create(create)
	if err != nil {
		return zero, false, &Error{
			Kind:    ErrCreationFailed,
			Key:     it.key,
			Create:  fmt.Sprintf("%p", create),
			Message: "create function failed",
			Cause:   err,
		}
	}
	if !it.env.actions.IsValid(v) {
		it.kill(v, KillRejected)
		return zero, false, &Error{
			Kind:    ErrCreationFailed,
			Key:     it.key,
			Object:  v,
			Create:  fmt.Sprintf("%p", create),
			Message: "created object is not valid",
		}
	}
	return v, true, nil
}

func (it *item[K, V]) create(create CreateFunc[K, V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in create function: %v", r)
		}
	}()
	return create(it.key)
}

// release moves obj from busy back to available, or kills it when it was
// condemned meanwhile or is no longer valid.
func (it *item[K, V]) release(obj V) error {
	if !it.exclusive {
		return invalidOp(it.key, obj, "obtained objects are not marked as unavailable, nothing to release")
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if _, ok := it.busy[obj]; !ok {
		if it.available.Contains(obj) {
			return invalidOp(it.key, obj, "object is currently available, it was released already or never obtained")
		}
		return invalidOp(it.key, obj, "object is unknown to this pool")
	}
	delete(it.busy, obj)
	if !it.killIfUnusable(obj) {
		it.available.Add(obj)
	}
	return nil
}

// markForKilling condemns a known object. Unknown objects are ignored.
func (it *item[K, V]) markForKilling(obj V) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if _, ok := it.busy[obj]; ok || it.available.Contains(obj) {
		it.toKill[obj] = struct{}{}
	}
}

// dispose kills every object, available ones first.
func (it *item[K, V]) dispose() {
	it.mu.Lock()
	defer it.mu.Unlock()

	for {
		v, ok := it.available.Remove()
		if !ok {
			break
		}
		it.kill(v, KillShutdown)
	}
	for v := range it.busy {
		it.kill(v, KillShutdown)
	}
	clear(it.busy)
	clear(it.toKill)
}

func (it *item[K, V]) counts() (available, busy int) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.available.Len(), len(it.busy)
}

// killIfUnusable disposes v when it is condemned or invalid. Caller holds mu
// and has already taken v out of available/busy.
func (it *item[K, V]) killIfUnusable(v V) bool {
	if _, marked := it.toKill[v]; marked {
		delete(it.toKill, v)
		it.kill(v, KillMarked)
		return true
	}
	if !it.env.actions.IsValid(v) {
		it.kill(v, KillInvalid)
		return true
	}
	return false
}

// kill disposes v and announces it with the item as reporter, so the base
// pool does not route the event back here.
func (it *item[K, V]) kill(v V, reason KillReason) {
	it.env.actions.Dispose(v)
	it.env.metrics.Killed(reason)
	it.log.Debug("object killed", zap.Any("key", it.key), zap.Stringer("reason", reason))
	it.env.utilizer.Utilize(it.key, v, it)
}
