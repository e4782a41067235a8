package pool

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// autoReleasingPool lets objects release themselves through the controller,
// e.g. a worker that finished its job.
type autoReleasingPool[K comparable, V comparable] struct {
	inner    chain[K, V]
	signaler func(V) ReleaseSignaler
	log      *zap.Logger

	ctrl atomic.Pointer[Controller[K, V]]
}

func newAutoReleasingPool[K comparable, V comparable](inner chain[K, V], signaler func(V) ReleaseSignaler, e *env[K, V]) *autoReleasingPool[K, V] {
	return &autoReleasingPool[K, V]{
		inner:    inner,
		signaler: signaler,
		log:      e.log.With(zap.String("component", "auto_release")),
	}
}

// setController completes the wiring; the Builder calls it once.
func (p *autoReleasingPool[K, V]) setController(c *Controller[K, V]) { p.ctrl.Store(c) }

func (p *autoReleasingPool[K, V]) TryObtain(key K, create CreateFunc[K, V]) (V, bool, error) {
	var zero V
	ctrl := p.ctrl.Load()
	if ctrl == nil {
		return zero, false, invalidOp(key, nil, "auto-release pool is used before a controller was set")
	}
	v, ok, err := p.inner.TryObtain(key, create)
	if err != nil || !ok {
		return v, ok, err
	}
	p.signaler(v).SetReleaseHandler(func() {
		if err := ctrl.Release(v); err != nil {
			p.log.Warn("auto-release failed", zap.Any("key", key), zap.Error(err))
		}
	})
	return v, true, nil
}

func (p *autoReleasingPool[K, V]) Release(key K, obj V) error {
	if p.ctrl.Load() == nil {
		return invalidOp(key, obj, "auto-release pool is used before a controller was set")
	}
	p.signaler(obj).SetReleaseHandler(nil)
	return p.inner.Release(key, obj)
}

func (p *autoReleasingPool[K, V]) Dispose() { p.inner.Dispose() }

func (p *autoReleasingPool[K, V]) lookup(key K) (*item[K, V], bool) { return p.inner.lookup(key) }
