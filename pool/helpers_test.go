package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IvanBrykalov/keyedpool/actions"
	"github.com/IvanBrykalov/keyedpool/notify"
)

type fakeClock struct{ t atomic.Int64 }

func (f *fakeClock) NowUnixNano() int64  { return f.t.Load() }
func (f *fakeClock) add(d time.Duration) { f.t.Add(int64(d)) }

// conn is a pooled test object with switchable health.
type conn struct {
	id       int
	invalid  atomic.Bool
	pingFail atomic.Bool
	resetErr atomic.Bool
	closed   atomic.Int32
	resets   atomic.Int32

	mu      sync.Mutex
	handler func()
}

func (c *conn) String() string { return fmt.Sprintf("conn#%d", c.id) }

func (c *conn) SetReleaseHandler(fn func()) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// done fires the release handler the way a worker finishing a job would.
func (c *conn) done() {
	c.mu.Lock()
	fn := c.handler
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

var errReset = errors.New("reset failed")

func connFuncs() actions.Funcs[*conn] {
	return actions.Funcs[*conn]{
		IsValid: func(c *conn) bool { return !c.invalid.Load() },
		Ping: func(c *conn) error {
			if c.pingFail.Load() {
				return errors.New("ping failed")
			}
			return nil
		},
		Reset: func(c *conn) error {
			c.resets.Add(1)
			if c.resetErr.Load() {
				return errReset
			}
			return nil
		},
		Dispose: func(c *conn) error {
			c.closed.Add(1)
			return nil
		},
	}
}

// factory creates numbered conns and counts calls.
type factory struct {
	calls atomic.Int32
}

func (f *factory) create(string) (*conn, error) {
	n := f.calls.Add(1)
	return &conn{id: int(n)}, nil
}

// events records every utilization announcement.
type events struct {
	mu  sync.Mutex
	got []notify.Event[string, *conn]
}

func (e *events) listen(ev notify.Event[string, *conn]) {
	e.mu.Lock()
	e.got = append(e.got, ev)
	e.mu.Unlock()
}

func (e *events) all() []notify.Event[string, *conn] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notify.Event[string, *conn](nil), e.got...)
}

func newTestEnv(t *testing.T, clk Clock) (*env[string, *conn], *events) {
	t.Helper()
	if clk == nil {
		clk = &fakeClock{}
	}
	e := newEnv(Options[string, *conn]{Funcs: connFuncs(), Clock: clk})
	rec := &events{}
	t.Cleanup(e.utilizer.Subscribe(rec.listen))
	return e, rec
}

func newTestItem(t *testing.T, s StorageSettings) (*item[string, *conn], *events) {
	t.Helper()
	e, rec := newTestEnv(t, nil)
	return newItem("k", s, e, e.log), rec
}
