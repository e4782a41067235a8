package pool

// KillReason explains why a pooled object was disposed.
type KillReason int

const (
	// KillInvalid: the object failed the validity check when encountered.
	KillInvalid KillReason = iota
	// KillMarked: another component reported the object as unusable.
	KillMarked
	// KillRejected: a freshly created object failed the validity check.
	KillRejected
	// KillShutdown: the pool was disposed.
	KillShutdown
)

func (r KillReason) String() string {
	switch r {
	case KillInvalid:
		return "invalid"
	case KillMarked:
		return "marked"
	case KillRejected:
		return "rejected"
	case KillShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Metrics exposes pool-level observability hooks.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// Created: a new object was accepted into the pool.
	Created()
	// Reused: an obtain was served by an existing object.
	Reused()
	// Missed: an Obtain ended without an object and without an error.
	Missed()
	// Killed: an object was disposed.
	Killed(reason KillReason)
	// Evicted: a sweep dropped an object for age, idleness or a failed ping.
	Evicted()
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Created()          {}
func (NoopMetrics) Reused()           {}
func (NoopMetrics) Missed()           {}
func (NoopMetrics) Killed(KillReason) {}
func (NoopMetrics) Evicted()          {}

var _ Metrics = NoopMetrics{}
