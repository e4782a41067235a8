package pool

import (
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keyedpool/internal/util"
	"github.com/IvanBrykalov/keyedpool/notify"
)

// lifetimeData is replaced, never mutated.
type lifetimeData[K comparable] struct {
	key      K
	created  int64 // UnixNano
	lastUsed int64 // UnixNano
}

// evictingPool tracks when objects were created and last used and drops the
// ones that outlived MaxLifetime or MaxIdle, or stopped answering pings.
type evictingPool[K comparable, V comparable] struct {
	inner    chain[K, V]
	settings EvictionSettings
	env      *env[K, V]
	log      *zap.Logger

	lifetimes   cmap.ConcurrentMap[V, *lifetimeData[K]]
	unsubscribe func()

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newEvictingPool[K comparable, V comparable](inner chain[K, V], s EvictionSettings, e *env[K, V]) *evictingPool[K, V] {
	p := &evictingPool[K, V]{
		inner:     inner,
		settings:  s,
		env:       e,
		log:       e.log.With(zap.String("component", "eviction")),
		lifetimes: cmap.NewWithCustomShardingFunction[V, *lifetimeData[K]](util.Shard32[V]),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	p.unsubscribe = e.utilizer.Subscribe(p.onUtilized)

	if s.SweepInterval > 0 {
		go p.loop(s.SweepInterval)
	} else {
		close(p.done)
	}
	return p
}

func (p *evictingPool[K, V]) TryObtain(key K, create CreateFunc[K, V]) (V, bool, error) {
	v, ok, err := p.inner.TryObtain(key, create)
	if err == nil && ok {
		p.touch(key, v)
	}
	return v, ok, err
}

func (p *evictingPool[K, V]) Release(key K, obj V) error {
	if p.settings.watchesRelease() {
		p.touch(key, obj)
	}
	return p.inner.Release(key, obj)
}

// Dispose stops the sweep timer, then disposes the inner pool.
func (p *evictingPool[K, V]) Dispose() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
		p.unsubscribe()
	})
	p.inner.Dispose()
}

func (p *evictingPool[K, V]) lookup(key K) (*item[K, V], bool) { return p.inner.lookup(key) }

// sweep announces every tracked object that is no longer worth keeping and
// returns how many were dropped. Dropped objects are disposed by their item
// the next time it meets them.
func (p *evictingPool[K, V]) sweep() int {
	now := p.env.now()
	dropped := 0
	for t := range p.lifetimes.IterBuffered() {
		if p.alive(t.Key, t.Val, now) {
			continue
		}
		p.lifetimes.Remove(t.Key)
		p.env.metrics.Evicted()
		p.env.utilizer.Utilize(t.Val.key, t.Key, p)
		dropped++
	}
	if dropped > 0 {
		p.log.Debug("sweep finished", zap.Int("dropped", dropped), zap.Int("tracked", p.lifetimes.Count()))
	}
	return dropped
}

func (p *evictingPool[K, V]) alive(v V, d *lifetimeData[K], now int64) bool {
	return p.env.actions.IsValid(v) &&
		within(now, d.created, p.settings.MaxLifetime) &&
		within(now, d.lastUsed, p.settings.MaxIdle) &&
		p.env.actions.Ping(v)
}

// within reports whether since is no older than limit at now; limit 0 means no limit.
func within(now, since int64, limit time.Duration) bool {
	return limit <= 0 || now-since < int64(limit)
}

func (p *evictingPool[K, V]) touch(key K, v V) {
	now := p.env.now()
	p.lifetimes.Upsert(v, nil, func(exist bool, old, _ *lifetimeData[K]) *lifetimeData[K] {
		if exist {
			return &lifetimeData[K]{key: old.key, created: old.created, lastUsed: now}
		}
		return &lifetimeData[K]{key: key, created: now, lastUsed: now}
	})
}

func (p *evictingPool[K, V]) onUtilized(ev notify.Event[K, V]) {
	if ev.Reporter == any(p) {
		return
	}
	p.lifetimes.Remove(ev.Object)
}

func (p *evictingPool[K, V]) loop(every time.Duration) {
	defer close(p.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.sweep()
		case <-p.stop:
			return
		}
	}
}
