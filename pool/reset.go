package pool

import "go.uber.org/zap"

// resettingPool restores an object's state before it goes back to the pool.
// Objects that fail to reset are reported as unusable and still released, so
// the item disposes them on the way in.
type resettingPool[K comparable, V comparable] struct {
	inner chain[K, V]
	env   *env[K, V]
	log   *zap.Logger
}

func newResettingPool[K comparable, V comparable](inner chain[K, V], e *env[K, V]) *resettingPool[K, V] {
	return &resettingPool[K, V]{inner: inner, env: e, log: e.log.With(zap.String("component", "reset"))}
}

func (p *resettingPool[K, V]) TryObtain(key K, create CreateFunc[K, V]) (V, bool, error) {
	return p.inner.TryObtain(key, create)
}

func (p *resettingPool[K, V]) Release(key K, obj V) error {
	if !p.env.actions.Reset(obj) {
		p.log.Debug("reset failed, utilizing object", zap.Any("key", key))
		p.env.utilizer.Utilize(key, obj, p)
	}
	return p.inner.Release(key, obj)
}

func (p *resettingPool[K, V]) Dispose() { p.inner.Dispose() }

func (p *resettingPool[K, V]) lookup(key K) (*item[K, V], bool) { return p.inner.lookup(key) }
