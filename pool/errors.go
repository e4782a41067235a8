package pool

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapacityExceeded is returned when a key is at MaxCountPerKey and the
	// pool is configured to fail instead of reporting not-ok.
	ErrCapacityExceeded = errors.New("pool: max objects count per key reached")
	// ErrCreationFailed is returned when the create function failed, panicked
	// or produced an object that did not pass the validity check.
	ErrCreationFailed = errors.New("pool: object creation failed")
	// ErrInvalidOperation is returned for misuse: releasing an object that is
	// not busy, releasing without a release promise, or a miswired pool.
	ErrInvalidOperation = errors.New("pool: invalid operation")
	// ErrInvalidDirection is returned by Obtain for a malformed Direction.
	ErrInvalidDirection = errors.New("pool: invalid direction")
)

// Error carries the context of a pool failure. It matches its Kind with
// errors.Is and unwraps to Cause.
type Error struct {
	Kind    error // one of the Err* sentinels
	Key     any
	Object  any
	Create  any // address of the CreateFunc involved, if any
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	var ctx []string
	if e.Key != nil {
		ctx = append(ctx, fmt.Sprintf("key=%v", e.Key))
	}
	if e.Object != nil {
		ctx = append(ctx, fmt.Sprintf("object=%v", e.Object))
	}
	if len(ctx) > 0 {
		b.WriteString(" (" + strings.Join(ctx, ", ") + ")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// AttemptError reports the Obtain attempt that failed. The loop stops at the
// first failing attempt.
type AttemptError struct {
	Attempt int
	Key     any
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("pool: attempt #%d of obtaining object with key=%v failed: %v", e.Attempt, e.Key, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

func invalidOp(key, obj any, msg string) error {
	return &Error{Kind: ErrInvalidOperation, Key: key, Object: obj, Message: msg}
}
