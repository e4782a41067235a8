package pool

// CreateFunc builds a new object for key. A returned error, a panic or an
// object rejected by the validity check fails the obtain with ErrCreationFailed.
type CreateFunc[K comparable, V comparable] func(key K) (V, error)

// Pool is the contract shared by the base pool and every decorator.
// All methods are safe for concurrent use by multiple goroutines.
type Pool[K comparable, V comparable] interface {
	// TryObtain returns an object for key. A nil create means "only reuse":
	// the pool reports not-ok instead of creating anything.
	TryObtain(key K, create CreateFunc[K, V]) (V, bool, error)

	// Release hands obj, previously obtained with key, back to the pool.
	Release(key K, obj V) error

	// Dispose disposes every object the pool still knows about.
	Dispose()
}

// chain is a Pool that can reach the item of a key through any number of
// decorators. Only types of this package implement it.
type chain[K comparable, V comparable] interface {
	Pool[K, V]
	lookup(key K) (*item[K, V], bool)
}

// ReleaseSignaler is implemented by objects that know when their user is done
// with them (for example a worker finishing a job). The pool installs a handler
// on obtain and clears it with nil on release.
type ReleaseSignaler interface {
	SetReleaseHandler(fn func())
}
