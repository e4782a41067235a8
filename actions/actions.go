// Package actions executes the per-object operations a pool relies on:
// validity checks, pings, state resets and disposal.
//
// Every operation runs through a defensive wrapper. A returned error or a
// panic inside user code is reported to the optional Notifier and turned into
// a safe default (false for checks, no-op for Dispose); it never reaches the
// pool's caller.
//
// Operations come from two sources, in priority order:
//   - explicit functions in Funcs;
//   - capabilities the caller declares for the pooled type (Capability bits),
//     in which case the object is used through Validatable, Pingable,
//     Resettable or io.Closer.
//
// With neither, IsValid reports true and the other operations do nothing.
package actions

import (
	"errors"
	"fmt"
	"io"
)

// Capability declares which optional interfaces the pooled type implements.
type Capability uint8

const (
	// CanValidate: objects implement Validatable.
	CanValidate Capability = 1 << iota
	// CanPing: objects implement Pingable.
	CanPing
	// CanReset: objects implement Resettable.
	CanReset
	// CanDispose: objects implement io.Closer.
	CanDispose
)

// Validatable objects can tell whether they are still usable.
type Validatable interface{ IsValid() bool }

// Pingable objects can be probed for liveness.
type Pingable interface{ Ping() error }

// Resettable objects can be returned to a clean state before reuse.
type Resettable interface{ Reset() error }

// ErrCapabilityMissing is reported when an object does not implement a
// capability that was declared for its type.
var ErrCapabilityMissing = errors.New("actions: declared capability not implemented")

// Funcs overrides individual operations. Nil fields fall back to the
// declared capabilities.
type Funcs[V any] struct {
	IsValid func(V) bool
	Ping    func(V) error
	Reset   func(V) error
	Dispose func(V) error
}

// Actions is the policy the pool uses for its objects.
// Implementations are safe for concurrent use as long as the underlying
// functions are.
type Actions[V any] interface {
	IsValid(v V) bool
	Ping(v V) bool
	Reset(v V) bool
	Dispose(v V)
}

type policy[V any] struct {
	isValid  func(V) (bool, error)
	ping     func(V) error
	reset    func(V) error
	dispose  func(V) error
	notifier Notifier[V]
}

// New builds an Actions policy. n may be nil.
func New[V any](f Funcs[V], caps Capability, n Notifier[V]) Actions[V] {
	p := &policy[V]{notifier: n}

	switch {
	case f.IsValid != nil:
		p.isValid = func(v V) (bool, error) { return f.IsValid(v), nil }
	case caps&CanValidate != 0:
		p.isValid = func(v V) (bool, error) {
			c, ok := any(v).(Validatable)
			if !ok {
				return false, missing(v, "Validatable")
			}
			return c.IsValid(), nil
		}
	default:
		p.isValid = func(V) (bool, error) { return true, nil }
	}

	p.ping = pick(f.Ping, caps&CanPing != 0, "Pingable", func(v V) (func() error, bool) {
		c, ok := any(v).(Pingable)
		if !ok {
			return nil, false
		}
		return c.Ping, true
	})
	p.reset = pick(f.Reset, caps&CanReset != 0, "Resettable", func(v V) (func() error, bool) {
		c, ok := any(v).(Resettable)
		if !ok {
			return nil, false
		}
		return c.Reset, true
	})
	p.dispose = pick(f.Dispose, caps&CanDispose != 0, "io.Closer", func(v V) (func() error, bool) {
		c, ok := any(v).(io.Closer)
		if !ok {
			return nil, false
		}
		return c.Close, true
	})
	return p
}

// pick chooses the explicit function, else the declared capability, else a no-op.
func pick[V any](explicit func(V) error, declared bool, iface string, as func(V) (func() error, bool)) func(V) error {
	if explicit != nil {
		return explicit
	}
	if !declared {
		return func(V) error { return nil }
	}
	return func(v V) error {
		fn, ok := as(v)
		if !ok {
			return missing(v, iface)
		}
		return fn()
	}
}

func missing(v any, iface string) error {
	return fmt.Errorf("%w: %T is not %s", ErrCapabilityMissing, v, iface)
}

func (p *policy[V]) IsValid(v V) bool {
	var ok bool
	err := p.safely(KindValidate, v, func() error {
		var e error
		ok, e = p.isValid(v)
		return e
	})
	return err == nil && ok
}

func (p *policy[V]) Ping(v V) bool {
	return p.safely(KindPing, v, func() error { return p.ping(v) }) == nil
}

func (p *policy[V]) Reset(v V) bool {
	return p.safely(KindReset, v, func() error { return p.reset(v) }) == nil
}

func (p *policy[V]) Dispose(v V) {
	_ = p.safely(KindDispose, v, func() error { return p.dispose(v) })
}

// safely runs fn, converting panics into errors and reporting any failure.
func (p *policy[V]) safely(kind Kind, v V, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil && p.notifier != nil {
			p.notifier.Notify(ActionError[V]{Kind: kind, Object: v, Err: err})
		}
	}()
	return fn()
}
