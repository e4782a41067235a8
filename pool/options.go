package pool

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/keyedpool/actions"
	"github.com/IvanBrykalov/keyedpool/notify"
	"github.com/IvanBrykalov/keyedpool/storage"
	"github.com/IvanBrykalov/keyedpool/storage/fifo"
	"github.com/IvanBrykalov/keyedpool/storage/lifo"
)

// LoadBalancingStrategy decides which idle object of a key is handed out next.
type LoadBalancingStrategy int

const (
	// DistributeAmongAll hands out the object idle for the longest time (FIFO),
	// spreading load across every object of the key.
	DistributeAmongAll LoadBalancingStrategy = iota
	// FavorMostRecentlyUsed hands out the object released last (LIFO), so
	// rarely needed extras go idle and can be evicted.
	FavorMostRecentlyUsed
)

func (s LoadBalancingStrategy) String() string {
	switch s {
	case DistributeAmongAll:
		return "distribute_among_all"
	case FavorMostRecentlyUsed:
		return "favor_most_recently_used"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

func newStorage[V comparable](s LoadBalancingStrategy) storage.Storage[V] {
	if s == FavorMostRecentlyUsed {
		return lifo.New[V]()
	}
	return fifo.New[V]()
}

// StorageSettings configures the per-key items of the base pool.
type StorageSettings struct {
	// ExclusiveUse keeps obtained objects busy until they are released.
	// When false every obtained object stays available for other callers.
	ExclusiveUse bool
	// Strategy picks the idle object handed out next. Default: DistributeAmongAll.
	Strategy LoadBalancingStrategy
	// MaxCountPerKey caps available+busy objects of one key (0 = unbounded).
	MaxCountPerKey int
	// ThrowOnLimit makes a creation attempt at capacity fail with
	// ErrCapacityExceeded instead of reporting not-ok.
	ThrowOnLimit bool
}

// Validate reports settings the pool cannot work with.
func (s StorageSettings) Validate() error {
	if s.MaxCountPerKey < 0 {
		return fmt.Errorf("pool: MaxCountPerKey must be >= 0, got %d", s.MaxCountPerKey)
	}
	if s.Strategy != DistributeAmongAll && s.Strategy != FavorMostRecentlyUsed {
		return fmt.Errorf("pool: unknown load balancing strategy %d", int(s.Strategy))
	}
	return nil
}

// EvictionSettings configures the eviction decorator. Zero durations are unset.
type EvictionSettings struct {
	// SweepInterval is the period of background sweeps; 0 disables the timer
	// (sweeps then run only through Controller.Sweep).
	SweepInterval time.Duration
	// MaxLifetime drops objects older than this since creation.
	MaxLifetime time.Duration
	// MaxIdle drops objects unused for longer than this.
	MaxIdle time.Duration
}

// Validate reports negative durations.
func (s EvictionSettings) Validate() error {
	if s.SweepInterval < 0 || s.MaxLifetime < 0 || s.MaxIdle < 0 {
		return fmt.Errorf("pool: eviction durations must be >= 0 (interval=%s lifetime=%s idle=%s)",
			s.SweepInterval, s.MaxLifetime, s.MaxIdle)
	}
	return nil
}

func (s EvictionSettings) watchesRelease() bool { return s.MaxLifetime > 0 || s.MaxIdle > 0 }

// ControllerSettings configures the Controller.
type ControllerSettings struct {
	// ReleaseWillHappen promises every obtained object is released through
	// the controller. Without the promise the controller tracks nothing,
	// rejects Release and makes exactly one attempt per Obtain.
	ReleaseWillHappen bool
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

type systemClock struct{}

func (systemClock) NowUnixNano() int64 { return time.Now().UnixNano() }

// Options configures a pool built by NewBuilder. Zero values are safe:
//   - nil Actions  => actions.New(Funcs, Capabilities, Notifier)
//   - nil Notifier => action errors are logged through Logger
//   - nil Utilizer => a private one
//   - nil Logger   => zap.NewNop()
//   - nil Metrics  => NoopMetrics
//   - nil Clock    => time.Now()
type Options[K comparable, V comparable] struct {
	Storage StorageSettings

	// Object actions. Actions wins over Funcs/Capabilities when set.
	Actions      actions.Actions[V]
	Funcs        actions.Funcs[V]
	Capabilities actions.Capability
	Notifier     actions.Notifier[V]

	// Utilizer may be shared with code outside the pool that wants to
	// condemn objects (e.g. after observing a broken connection).
	Utilizer *notify.Utilizer[K, V]

	Logger  *zap.Logger
	Metrics Metrics
	Clock   Clock
}

// env is what every layer of one pool shares.
type env[K comparable, V comparable] struct {
	actions  actions.Actions[V]
	utilizer *notify.Utilizer[K, V]
	log      *zap.Logger
	metrics  Metrics
	clock    Clock
}

func newEnv[K comparable, V comparable](opt Options[K, V]) *env[K, V] {
	e := &env[K, V]{
		actions:  opt.Actions,
		utilizer: opt.Utilizer,
		log:      opt.Logger,
		metrics:  opt.Metrics,
		clock:    opt.Clock,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.actions == nil {
		n := opt.Notifier
		if n == nil {
			n = actions.NewZapNotifier[V](e.log)
		}
		e.actions = actions.New(opt.Funcs, opt.Capabilities, n)
	}
	if e.utilizer == nil {
		e.utilizer = notify.New[K, V]()
	}
	if e.metrics == nil {
		e.metrics = NoopMetrics{}
	}
	if e.clock == nil {
		e.clock = systemClock{}
	}
	return e
}

func (e *env[K, V]) now() int64 { return e.clock.NowUnixNano() }
