package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSingleUse_Release(t *testing.T) {
	t.Parallel()

	e, _ := newTestEnv(t, nil)
	base := newBasePool(StorageSettings{ExclusiveUse: true, MaxCountPerKey: 1}, e)
	p := &singleUsePool[string, *conn]{inner: base}
	t.Cleanup(p.Dispose)
	f := &factory{}

	err := p.Release("never", &conn{})
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Contains(t, err.Error(), "never obtained")

	v, ok, err := p.TryObtain("k", f.create)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = p.TryObtain("k", f.create)
	require.NoError(t, err)
	assert.False(t, ok, "the only object is busy")

	require.NoError(t, p.Release("k", v))
	w, ok, err := p.TryObtain("k", f.create)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, v, w)

	require.NoError(t, p.Release("k", w))
	require.ErrorIs(t, p.Release("k", w), ErrInvalidOperation)
}

// A failed reset condemns the object; the release still goes through and the
// item disposes it.
func TestReset_FailedResetKillsObject(t *testing.T) {
	t.Parallel()

	e, rec := newTestEnv(t, nil)
	base := newBasePool(StorageSettings{ExclusiveUse: true}, e)
	p := newResettingPool[string, *conn](&singleUsePool[string, *conn]{inner: base}, e)
	t.Cleanup(p.Dispose)
	f := &factory{}

	good, _, err := p.TryObtain("k", f.create)
	require.NoError(t, err)
	bad, _, err := p.TryObtain("k", f.create)
	require.NoError(t, err)
	bad.resetErr.Store(true)

	require.NoError(t, p.Release("k", good))
	require.NoError(t, p.Release("k", bad))

	assert.EqualValues(t, 1, good.resets.Load())
	assert.EqualValues(t, 1, bad.resets.Load())
	assert.Zero(t, good.closed.Load())
	assert.EqualValues(t, 1, bad.closed.Load())

	var fromReset int
	for _, ev := range rec.all() {
		if ev.Reporter == any(p) {
			fromReset++
			assert.Same(t, bad, ev.Object)
		}
	}
	assert.Equal(t, 1, fromReset)

	avail, busy, _ := base.Stats("k")
	assert.Equal(t, 1, avail)
	assert.Equal(t, 0, busy)
}

func TestAutoRelease_RequiresController(t *testing.T) {
	t.Parallel()

	e, _ := newTestEnv(t, nil)
	base := newBasePool(StorageSettings{ExclusiveUse: true}, e)
	p := newAutoReleasingPool[string, *conn](base, func(c *conn) ReleaseSignaler { return c }, e)
	t.Cleanup(p.Dispose)

	_, ok, err := p.TryObtain("k", (&factory{}).create)
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.False(t, ok)
	require.ErrorIs(t, p.Release("k", &conn{}), ErrInvalidOperation)
}

func TestAutoRelease_ObjectReleasesItself(t *testing.T) {
	t.Parallel()

	ctrl, err := NewBuilder[string, *conn](Options[string, *conn]{
		Storage: StorageSettings{ExclusiveUse: true, MaxCountPerKey: 1},
		Funcs:   connFuncs(),
	}).WithSingleUse().
		WithAutoRelease(func(c *conn) ReleaseSignaler { return c }).
		Build(ControllerSettings{ReleaseWillHappen: true})
	require.NoError(t, err)
	t.Cleanup(ctrl.Dispose)
	f := &factory{}

	v, ok, err := ctrl.Obtain("w", &Direction[string, *conn]{Attempts: 1, Create: f.create})
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = ctrl.Obtain("w", &Direction[string, *conn]{Attempts: 1, Create: f.create})
	require.NoError(t, err)
	require.False(t, ok)

	v.done()
	avail, busy, _ := ctrl.Stats("w")
	assert.Equal(t, 1, avail)
	assert.Equal(t, 0, busy)
	assert.Nil(t, v.handler, "handler is cleared on release")
	assert.Zero(t, ctrl.Counters().Tracked)

	w, ok, err := ctrl.Obtain("w", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, v, w)
}

// A handler firing twice only releases once; the second failure is logged.
func TestAutoRelease_HandlerErrorsAreLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	ctrl, err := NewBuilder[string, *conn](Options[string, *conn]{
		Storage: StorageSettings{ExclusiveUse: true},
		Funcs:   connFuncs(),
		Logger:  zap.New(core),
	}).WithSingleUse().
		WithAutoRelease(func(c *conn) ReleaseSignaler { return c }).
		Build(ControllerSettings{ReleaseWillHappen: true})
	require.NoError(t, err)
	t.Cleanup(ctrl.Dispose)

	v, ok, err := ctrl.Obtain("w", &Direction[string, *conn]{Attempts: 1, Create: (&factory{}).create})
	require.NoError(t, err)
	require.True(t, ok)

	v.mu.Lock()
	fn := v.handler
	v.mu.Unlock()
	fn()
	fn()

	entries := logs.FilterMessage("auto-release failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "auto_release", entries[0].ContextMap()["component"])
}
