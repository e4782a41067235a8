// Package storage defines the ordered container that holds the idle objects
// of one pool key. The ordering is the load-balancing bias of the pool:
// see storage/fifo and storage/lifo.
package storage

// Storage holds available objects for a single key.
//
// Concurrency: implementations are not safe for concurrent use; the owning
// pool item calls them under its own lock.
type Storage[V comparable] interface {
	// Add puts v into the container.
	Add(v V)
	// Remove takes the next object according to the ordering.
	// ok is false when the container is empty.
	Remove() (v V, ok bool)
	// Contains reports whether v is currently stored.
	Contains(v V) bool
	// Len returns the number of stored objects.
	Len() int
}

// Factory creates an empty Storage. Pools call it once per key.
type Factory[V comparable] func() Storage[V]
