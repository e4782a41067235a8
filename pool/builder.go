package pool

import (
	"errors"

	"go.uber.org/zap"
)

// Builder assembles a pool bottom-up: base pool first, then decorators in
// call order, then the Controller. Each With* call wraps what was built so
// far, so the last decorator added sees calls first.
//
//	ctrl, err := pool.NewBuilder[K, V](opt).
//	    WithEviction(ev).   // innermost decorator
//	    WithSingleUse().
//	    WithReset().        // outermost decorator
//	    Build(pool.ControllerSettings{ReleaseWillHappen: true})
type Builder[K comparable, V comparable] struct {
	env      *env[K, V]
	storage  StorageSettings
	base     *basePool[K, V]
	top      chain[K, V]
	sweepers []*evictingPool[K, V]
	auto     []*autoReleasingPool[K, V]
	errs     []error
}

// NewBuilder validates opt and creates the base pool.
func NewBuilder[K comparable, V comparable](opt Options[K, V]) *Builder[K, V] {
	b := &Builder[K, V]{env: newEnv(opt), storage: opt.Storage}
	if err := opt.Storage.Validate(); err != nil {
		b.errs = append(b.errs, err)
	}
	b.base = newBasePool(opt.Storage, b.env)
	b.top = b.base
	return b
}

// WithEviction drops objects that outlive s.MaxLifetime or s.MaxIdle or fail
// a ping. Sweeps run every s.SweepInterval and on Controller.Sweep.
func (b *Builder[K, V]) WithEviction(s EvictionSettings) *Builder[K, V] {
	if err := s.Validate(); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	p := newEvictingPool(b.top, s, b.env)
	b.sweepers = append(b.sweepers, p)
	b.top = p
	return b
}

// WithSingleUse keeps obtained objects busy until released.
// Requires StorageSettings.ExclusiveUse.
func (b *Builder[K, V]) WithSingleUse() *Builder[K, V] {
	if !b.storage.ExclusiveUse {
		b.errs = append(b.errs, invalidOp(nil, nil, "single-use requires StorageSettings.ExclusiveUse"))
		return b
	}
	b.top = &singleUsePool[K, V]{inner: b.top}
	return b
}

// WithReset resets objects on release and condemns the ones that fail.
func (b *Builder[K, V]) WithReset() *Builder[K, V] {
	b.top = newResettingPool(b.top, b.env)
	return b
}

// WithAutoRelease installs a release handler on every obtained object through
// signaler, so objects can release themselves.
func (b *Builder[K, V]) WithAutoRelease(signaler func(V) ReleaseSignaler) *Builder[K, V] {
	if signaler == nil {
		b.errs = append(b.errs, invalidOp(nil, nil, "auto-release needs a signaler accessor"))
		return b
	}
	p := newAutoReleasingPool(b.top, signaler, b.env)
	b.auto = append(b.auto, p)
	b.top = p
	return b
}

// Build creates the Controller and wires it into the auto-release layers.
// Any settings error collected so far is returned and the partial chain is
// disposed.
func (b *Builder[K, V]) Build(s ControllerSettings) (*Controller[K, V], error) {
	if len(b.auto) > 0 && !s.ReleaseWillHappen {
		b.errs = append(b.errs, invalidOp(nil, nil, "auto-release requires ControllerSettings.ReleaseWillHappen"))
	}
	if err := errors.Join(b.errs...); err != nil {
		b.top.Dispose()
		return nil, err
	}

	c := newController(s, b.top, b.base, b.sweepers, b.env)
	for _, p := range b.auto {
		p.setController(c)
	}
	c.log.Debug("pool built",
		zap.Bool("exclusive", b.storage.ExclusiveUse),
		zap.Stringer("strategy", b.storage.Strategy),
		zap.Int("max_per_key", b.storage.MaxCountPerKey),
		zap.Int("sweepers", len(b.sweepers)),
		zap.Int("auto_release", len(b.auto)),
	)
	return c, nil
}
