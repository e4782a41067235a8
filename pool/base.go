package pool

import (
	cmap "github.com/orcaman/concurrent-map/v2"
	concpool "github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keyedpool/internal/util"
	"github.com/IvanBrykalov/keyedpool/notify"
)

// basePool keeps one item per key. It is the bottom of every chain.
type basePool[K comparable, V comparable] struct {
	settings StorageSettings
	env      *env[K, V]
	log      *zap.Logger

	items       cmap.ConcurrentMap[K, *item[K, V]]
	unsubscribe func()
}

func newBasePool[K comparable, V comparable](s StorageSettings, e *env[K, V]) *basePool[K, V] {
	p := &basePool[K, V]{
		settings: s,
		env:      e,
		log:      e.log.With(zap.String("component", "base_pool")),
		items:    cmap.NewWithCustomShardingFunction[K, *item[K, V]](util.Shard32[K]),
	}
	p.unsubscribe = e.utilizer.Subscribe(p.onUtilized)
	return p
}

// TryObtain delegates to the key's item, creating the item on first use.
func (p *basePool[K, V]) TryObtain(key K, create CreateFunc[K, V]) (V, bool, error) {
	return p.itemFor(key).tryObtain(create)
}

// Release is a no-op: availability is managed by the item through the
// single-use decorator.
func (p *basePool[K, V]) Release(K, V) error { return nil }

// Dispose stops listening for utilization events and disposes every item in
// parallel. Items stay in the map, so late calls find empty items.
func (p *basePool[K, V]) Dispose() {
	p.unsubscribe()

	wp := concpool.New().WithMaxGoroutines(util.Parallelism())
	for _, it := range p.items.Items() {
		wp.Go(it.dispose)
	}
	wp.Wait()
	p.log.Debug("disposed", zap.Int("keys", p.items.Count()))
}

func (p *basePool[K, V]) lookup(key K) (*item[K, V], bool) { return p.items.Get(key) }

// Stats reports the available and busy counts of key.
func (p *basePool[K, V]) Stats(key K) (available, busy int, ok bool) {
	it, ok := p.items.Get(key)
	if !ok {
		return 0, 0, false
	}
	available, busy = it.counts()
	return available, busy, true
}

// Keys returns every key that was ever obtained from.
func (p *basePool[K, V]) Keys() []K { return p.items.Keys() }

func (p *basePool[K, V]) itemFor(key K) *item[K, V] {
	if it, ok := p.items.Get(key); ok {
		return it
	}
	return p.items.Upsert(key, nil, func(exist bool, inMap, _ *item[K, V]) *item[K, V] {
		if exist {
			return inMap
		}
		return newItem(key, p.settings, p.env, p.log)
	})
}

// onUtilized condemns objects reported by anyone but an item. Items report
// objects they have already disposed.
func (p *basePool[K, V]) onUtilized(ev notify.Event[K, V]) {
	if _, fromItem := ev.Reporter.(*item[K, V]); fromItem {
		return
	}
	if it, ok := p.items.Get(ev.Key); ok {
		it.markForKilling(ev.Object)
	}
}
