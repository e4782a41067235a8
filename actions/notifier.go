package actions

import (
	"fmt"

	"go.uber.org/zap"
)

// Kind names the operation that failed.
type Kind int

const (
	// KindValidate is the validity check.
	KindValidate Kind = iota
	// KindPing is the liveness probe.
	KindPing
	// KindReset is the state reset before reuse.
	KindReset
	// KindDispose is the final release of the object's resources.
	KindDispose
)

func (k Kind) String() string {
	switch k {
	case KindValidate:
		return "validate"
	case KindPing:
		return "ping"
	case KindReset:
		return "reset"
	case KindDispose:
		return "dispose"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ActionError describes a failed user-defined operation.
type ActionError[V any] struct {
	Kind   Kind
	Object V
	Err    error
}

func (e ActionError[V]) Error() string {
	return fmt.Sprintf("actions: %s failed for %v: %v", e.Kind, e.Object, e.Err)
}

func (e ActionError[V]) Unwrap() error { return e.Err }

// Notifier receives action failures. Calls happen synchronously on the
// goroutine that ran the action, often under a pool item lock: keep it cheap.
type Notifier[V any] interface {
	Notify(ActionError[V])
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc[V any] func(ActionError[V])

func (f NotifierFunc[V]) Notify(e ActionError[V]) { f(e) }

type zapNotifier[V any] struct{ l *zap.Logger }

// NewZapNotifier reports action failures as warnings on l (nil => no-op logger).
func NewZapNotifier[V any](l *zap.Logger) Notifier[V] {
	if l == nil {
		l = zap.NewNop()
	}
	return zapNotifier[V]{l: l.With(zap.String("component", "object_actions"))}
}

func (n zapNotifier[V]) Notify(e ActionError[V]) {
	n.l.Warn("user-defined action failed",
		zap.Stringer("action", e.Kind),
		zap.String("object", fmt.Sprintf("%v", e.Object)),
		zap.Error(e.Err))
}
