package pool

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/keyedpool/internal/util"
)

// Controller is the entry point of a pool: it retries obtains as a Direction
// says and remembers the key of every obtained object, so Release needs only
// the object. Build one with NewBuilder.
type Controller[K comparable, V comparable] struct {
	id       uuid.UUID
	settings ControllerSettings
	chain    chain[K, V]
	base     *basePool[K, V]
	sweepers []*evictingPool[K, V]
	metrics  Metrics
	log      *zap.Logger

	obtained cmap.ConcurrentMap[V, K]
	disposed atomic.Bool

	sleep func(time.Duration)

	attempts util.PaddedAtomicInt64
	obtains  util.PaddedAtomicInt64
	misses   util.PaddedAtomicInt64
}

// Counters is a snapshot of controller activity.
type Counters struct {
	Attempts int64 // pool calls made, including retries
	Obtained int64 // successful Obtain calls
	Missed   int64 // Obtain calls that ended without object and error
	Tracked  int   // objects currently waiting for Release
}

func newController[K comparable, V comparable](s ControllerSettings, c chain[K, V], base *basePool[K, V], sweepers []*evictingPool[K, V], e *env[K, V]) *Controller[K, V] {
	id := uuid.New()
	return &Controller[K, V]{
		id:       id,
		settings: s,
		chain:    c,
		base:     base,
		sweepers: sweepers,
		metrics:  e.metrics,
		log:      e.log.With(zap.String("component", "controller"), zap.Stringer("controller_id", id)),
		obtained: cmap.NewWithCustomShardingFunction[V, K](util.Shard32[V]),
		sleep:    time.Sleep,
	}
}

// ID identifies this controller in logs.
func (c *Controller[K, V]) ID() uuid.UUID { return c.id }

// Obtain returns an object for key following dir (nil dir = DoNotWait).
//
// Every attempt but the first is preceded by a wait. Only the last attempt may
// create an object. The first error ends the loop and comes back wrapped in an
// *AttemptError. A disposed controller returns (zero, false, nil).
func (c *Controller[K, V]) Obtain(key K, dir *Direction[K, V]) (V, bool, error) {
	var zero V
	if c.disposed.Load() {
		return zero, false, nil
	}
	if dir == nil {
		dir = DoNotWait[K, V]()
	}
	if err := dir.Validate(); err != nil {
		return zero, false, err
	}

	attempts := dir.Attempts
	if !c.settings.ReleaseWillHappen {
		// Nobody gives objects back, so waiting is pointless.
		attempts = 1
	}
	sched := dir.schedule()

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := sched.NextBackOff()
			if wait == backoff.Stop {
				break
			}
			if wait > 0 {
				c.sleep(wait)
			}
		}
		var create CreateFunc[K, V]
		if attempt == attempts {
			create = dir.Create
		}

		c.attempts.Add(1)
		v, ok, err := c.try(key, create)
		if err != nil {
			c.log.Debug("obtain failed", zap.Any("key", key), zap.Int("attempt", attempt), zap.Error(err))
			return zero, false, &AttemptError{Attempt: attempt, Key: key, Err: err}
		}
		if ok {
			if c.settings.ReleaseWillHappen {
				c.obtained.Set(v, key)
			}
			c.obtains.Add(1)
			return v, true, nil
		}
	}

	c.misses.Add(1)
	c.metrics.Missed()
	return zero, false, nil
}

func (c *Controller[K, V]) try(key K, create CreateFunc[K, V]) (v V, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while obtaining: %v", r)
		}
	}()
	return c.chain.TryObtain(key, create)
}

// Release gives obj back to the pool it came from. A disposed controller
// ignores the call.
func (c *Controller[K, V]) Release(obj V) error {
	if c.disposed.Load() {
		return nil
	}
	if !c.settings.ReleaseWillHappen {
		return invalidOp(nil, obj, "releasing was not promised; set ControllerSettings.ReleaseWillHappen")
	}
	key, ok := c.obtained.Pop(obj)
	if !ok {
		return invalidOp(nil, obj, "only obtained objects can be released")
	}
	return c.chain.Release(key, obj)
}

// Dispose disposes the whole chain. It does not wait for in-flight calls.
func (c *Controller[K, V]) Dispose() {
	if c.disposed.Swap(true) {
		return
	}
	c.chain.Dispose()
	c.obtained.Clear()
	c.log.Debug("disposed")
}

// Sweep runs every eviction sweep of the chain now and returns how many
// objects were dropped.
func (c *Controller[K, V]) Sweep() int {
	n := 0
	for _, s := range c.sweepers {
		n += s.sweep()
	}
	return n
}

// Stats reports the available and busy object counts of key.
func (c *Controller[K, V]) Stats(key K) (available, busy int, ok bool) { return c.base.Stats(key) }

// Keys returns every key the pool has seen.
func (c *Controller[K, V]) Keys() []K { return c.base.Keys() }

// Counters returns a snapshot of controller activity.
func (c *Controller[K, V]) Counters() Counters {
	return Counters{
		Attempts: c.attempts.Load(),
		Obtained: c.obtains.Load(),
		Missed:   c.misses.Load(),
		Tracked:  c.obtained.Count(),
	}
}
