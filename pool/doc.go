// Package pool is a generic keyed object pool assembled from small layers.
//
// Design
//
//   - Items: every key owns one item holding that key's available and busy
//     objects behind a mutex. The item is the only place capacity, reuse order
//     and disposal of invalid or condemned objects are decided.
//
//   - Base pool: a concurrent map from key to item (sharded concurrent-map)
//     with atomic get-or-create. It listens to the Utilizer and condemns
//     objects other components report as unusable.
//
//   - Decorators: eviction (idle/lifetime sweep), single-use (objects are
//     busy until released), reset-on-release and auto-release wrap the base
//     pool and each other. They all satisfy Pool.
//
//   - Controller: the entry point. It runs the retry loop described by a
//     Direction, waits between attempts (constant interval or a backoff.BackOff),
//     asks for creation only on the last attempt and remembers which key every
//     obtained object belongs to so Release needs only the object.
//
//   - Utilizer: components never call each other to get rid of an object.
//     They announce it on the shared notify.Utilizer and every other layer
//     drops its own bookkeeping.
//
//   - Metrics: Options.Metrics receives Created/Reused/Missed/Killed/Evicted
//     signals. NoopMetrics is used by default; see metrics/prom and
//     metrics/otel for exporters.
//
// Basic usage
//
//	b := pool.NewBuilder[string, *Conn](pool.Options[string, *Conn]{
//	    Storage: pool.StorageSettings{ExclusiveUse: true, MaxCountPerKey: 4},
//	    Funcs:   actions.Funcs[*Conn]{Dispose: func(c *Conn) error { return c.Close() }},
//	})
//	ctrl, err := b.WithEviction(pool.EvictionSettings{
//	    SweepInterval: time.Minute,
//	    MaxIdle:       5 * time.Minute,
//	}).WithSingleUse().WithReset().Build(pool.ControllerSettings{ReleaseWillHappen: true})
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Dispose()
//
//	conn, ok, err := ctrl.Obtain("db-1", &pool.Direction[string, *Conn]{
//	    Attempts: 3,
//	    Interval: 50 * time.Millisecond,
//	    Create:   dial,
//	})
//	if err != nil || !ok {
//	    return err
//	}
//	defer ctrl.Release(conn)
//
// # Thread-safety
//
// Every exported method is safe for concurrent use. Operations on different
// keys never contend on the same lock. Dispose is not synchronized with
// in-flight Obtain/Release calls: callers stop using the pool first.
package pool
