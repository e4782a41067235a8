package pool

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Direction tells the Controller how hard to try for an object.
type Direction[K comparable, V comparable] struct {
	// Attempts is the number of obtain attempts (>= 1).
	Attempts int
	// Interval is the constant wait before every attempt but the first.
	// Ignored when Backoff is set.
	Interval time.Duration
	// Create is passed to the last attempt only; earlier attempts wait for an
	// object to come back. nil means never create.
	Create CreateFunc[K, V]
	// Backoff, when set, replaces Interval. It is Reset at the start of every
	// Obtain and is not safe to share between concurrent Obtain calls.
	// Returning backoff.Stop ends the loop early.
	Backoff backoff.BackOff
}

// DoNotWait is the single attempt, no wait, no create direction used for a nil
// Direction.
func DoNotWait[K comparable, V comparable]() *Direction[K, V] {
	return &Direction[K, V]{Attempts: 1}
}

// Validate reports a malformed direction.
func (d *Direction[K, V]) Validate() error {
	if d.Attempts < 1 {
		return fmt.Errorf("%w: attempts must be >= 1, got %d", ErrInvalidDirection, d.Attempts)
	}
	if d.Interval < 0 {
		return fmt.Errorf("%w: interval must be >= 0, got %s", ErrInvalidDirection, d.Interval)
	}
	return nil
}

func (d *Direction[K, V]) schedule() backoff.BackOff {
	if d.Backoff != nil {
		d.Backoff.Reset()
		return d.Backoff
	}
	return backoff.NewConstantBackOff(d.Interval)
}
