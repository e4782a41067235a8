package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/keyedpool/notify"
)

func newTestEviction(t *testing.T, s EvictionSettings) (*evictingPool[string, *conn], *fakeClock, *events) {
	t.Helper()
	clk := &fakeClock{}
	e, rec := newTestEnv(t, clk)
	base := newBasePool(StorageSettings{ExclusiveUse: true}, e)
	p := newEvictingPool[string, *conn](base, s, e)
	t.Cleanup(p.Dispose)
	return p, clk, rec
}

func reportedBy(evs []notify.Event[string, *conn], reporter any) []notify.Event[string, *conn] {
	var out []notify.Event[string, *conn]
	for _, ev := range evs {
		if ev.Reporter == reporter {
			out = append(out, ev)
		}
	}
	return out
}

func TestEviction_IdleObjectDropped(t *testing.T) {
	t.Parallel()

	p, clk, rec := newTestEviction(t, EvictionSettings{MaxIdle: 5 * time.Second})
	v, ok, err := p.TryObtain("db", (&factory{}).create)
	require.NoError(t, err)
	require.True(t, ok)

	clk.add(6 * time.Second)
	assert.Equal(t, 1, p.sweep())

	mine := reportedBy(rec.all(), p)
	require.Len(t, mine, 1)
	assert.Equal(t, "db", mine[0].Key)
	assert.Same(t, v, mine[0].Object)
	assert.Zero(t, p.lifetimes.Count())

	// the base pool condemned it; the item disposes it on release
	it, _ := p.lookup("db")
	require.NoError(t, it.release(v))
	assert.EqualValues(t, 1, v.closed.Load())

	assert.Zero(t, p.sweep(), "nothing left to sweep")
}

func TestEviction_KeepsFreshObjects(t *testing.T) {
	t.Parallel()

	p, clk, rec := newTestEviction(t, EvictionSettings{MaxIdle: 5 * time.Second, MaxLifetime: time.Minute})
	_, _, err := p.TryObtain("db", (&factory{}).create)
	require.NoError(t, err)

	clk.add(4 * time.Second)
	assert.Zero(t, p.sweep())
	assert.Empty(t, reportedBy(rec.all(), p))
	assert.Equal(t, 1, p.lifetimes.Count())
}

// Use refreshes idleness but not age.
func TestEviction_MaxLifetime(t *testing.T) {
	t.Parallel()

	p, clk, _ := newTestEviction(t, EvictionSettings{MaxIdle: 5 * time.Second, MaxLifetime: 10 * time.Second})
	v, _, err := p.TryObtain("db", (&factory{}).create)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		clk.add(3 * time.Second)
		require.NoError(t, p.Release("db", v))
		assert.Zero(t, p.sweep())
	}
	clk.add(2 * time.Second) // 11s since creation, 2s idle
	assert.Equal(t, 1, p.sweep())
}

func TestEviction_FailedPingOrValidity(t *testing.T) {
	t.Parallel()

	p, _, rec := newTestEviction(t, EvictionSettings{})
	f := &factory{}
	a, _, err := p.TryObtain("a", f.create)
	require.NoError(t, err)
	b, _, err := p.TryObtain("b", f.create)
	require.NoError(t, err)
	c, _, err := p.TryObtain("c", f.create)
	require.NoError(t, err)

	a.pingFail.Store(true)
	b.invalid.Store(true)

	assert.Equal(t, 2, p.sweep())
	keys := map[string]bool{}
	for _, ev := range reportedBy(rec.all(), p) {
		keys[ev.Key] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, keys)

	_, tracked := p.lifetimes.Get(c)
	assert.True(t, tracked)
}

// Release updates tracking only when an age limit is configured; obtain
// always does.
func TestEviction_ReleaseTracking(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestEviction(t, EvictionSettings{})
	stranger := &conn{id: 5}
	require.NoError(t, p.Release("x", stranger))
	assert.Zero(t, p.lifetimes.Count())

	_, _, err := p.TryObtain("x", (&factory{}).create)
	require.NoError(t, err)
	assert.Equal(t, 1, p.lifetimes.Count())

	q, clk, _ := newTestEviction(t, EvictionSettings{MaxIdle: time.Second})
	clk.add(time.Minute)
	require.NoError(t, q.Release("x", stranger))
	d, ok := q.lifetimes.Get(stranger)
	require.True(t, ok)
	assert.Equal(t, int64(time.Minute), d.created)
}

func TestEviction_ForgetsObjectsReportedByOthers(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestEviction(t, EvictionSettings{MaxIdle: time.Second})
	v, _, err := p.TryObtain("db", (&factory{}).create)
	require.NoError(t, err)
	require.Equal(t, 1, p.lifetimes.Count())

	p.env.utilizer.Utilize("db", v, "someone-else")
	assert.Zero(t, p.lifetimes.Count())
}

func TestEviction_BackgroundSweep(t *testing.T) {
	t.Parallel()

	p, clk, rec := newTestEviction(t, EvictionSettings{SweepInterval: 5 * time.Millisecond, MaxIdle: time.Second})
	_, _, err := p.TryObtain("db", (&factory{}).create)
	require.NoError(t, err)

	clk.add(2 * time.Second)
	require.Eventually(t, func() bool {
		return len(reportedBy(rec.all(), p)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	p.Dispose()
	p.Dispose()
}
