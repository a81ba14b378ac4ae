package idle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// newManual builds a monitor whose background ticker never fires during the
// test, so the test drives time through Tick.
func newManual(t *testing.T) (*Monitor, *manualClock, *atomic.Int32, time.Time) {
	t.Helper()
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &manualClock{t: t0}
	var fired atomic.Int32
	m := New(Config{
		IdleTime:    300000 * time.Millisecond,
		WarningTime: 60000 * time.Millisecond,
		Tick:        time.Hour,
		Clock:       clock,
	}, func() { fired.Add(1) })
	t.Cleanup(m.Stop)
	return m, clock, &fired, t0
}

func at(t0 time.Time, ms int64) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func TestCountdownWarningAndExpiry(t *testing.T) {
	m, clock, fired, t0 := newManual(t)
	m.Start()

	snap := m.Snapshot()
	assert.Equal(t, Active, snap.State)
	assert.Equal(t, int64(300000), snap.RemainingMillis)
	assert.False(t, snap.Warning)

	snap = m.Tick(at(t0, 239000))
	assert.Equal(t, Active, snap.State)

	snap = m.Tick(at(t0, 240000))
	assert.Equal(t, Warning, snap.State)
	assert.True(t, snap.Warning)
	assert.Equal(t, int64(60), snap.RemainingSeconds())

	// Warning is sticky even if a late tick reports an earlier time.
	snap = m.Tick(at(t0, 1000))
	assert.Equal(t, Warning, snap.State)

	clock.Set(at(t0, 299001))
	assert.Equal(t, int64(1), m.RemainingSeconds())
	assert.Zero(t, fired.Load())

	snap = m.Tick(at(t0, 300000))
	assert.Equal(t, Expired, snap.State)
	assert.Equal(t, int64(0), snap.RemainingMillis)
	assert.Equal(t, int32(1), fired.Load())

	m.Tick(at(t0, 301000))
	m.Tick(at(t0, 900000))
	assert.Equal(t, int32(1), fired.Load(), "callback must fire exactly once")
}

func TestActivityResetsCountdown(t *testing.T) {
	m, clock, fired, t0 := newManual(t)
	m.Start()

	clock.Set(at(t0, 250000))
	require.Equal(t, Warning, m.Snapshot().State)

	assert.True(t, m.Activity())
	snap := m.Snapshot()
	assert.Equal(t, Active, snap.State)
	assert.Equal(t, int64(300000), snap.RemainingMillis)
	assert.False(t, snap.Warning)

	// The original deadline passes without firing.
	m.Tick(at(t0, 300000))
	m.Tick(at(t0, 549999))
	assert.Zero(t, fired.Load())

	m.Tick(at(t0, 550000))
	assert.Equal(t, int32(1), fired.Load())
}

func TestActivityIgnoredWhenExpiredOrStopped(t *testing.T) {
	m, clock, fired, t0 := newManual(t)
	assert.False(t, m.Activity(), "not started")

	m.Start()
	m.Tick(at(t0, 300000))
	require.Equal(t, int32(1), fired.Load())

	clock.Set(at(t0, 300500))
	assert.False(t, m.Activity())
	assert.Equal(t, Expired, m.Snapshot().State)

	m.Reset()
	snap := m.Snapshot()
	assert.Equal(t, Active, snap.State)
	assert.Equal(t, int64(300000), snap.RemainingMillis)
}

func TestActivityAfterMissedDeadlineExpires(t *testing.T) {
	m, clock, fired, t0 := newManual(t)
	m.Start()

	clock.Set(at(t0, 400000))
	assert.False(t, m.Activity())
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, Expired, m.Snapshot().State)
}

func TestRemainingSecondsRoundsUp(t *testing.T) {
	cases := map[int64]int64{0: 0, 1: 1, 999: 1, 1000: 1, 1001: 2, 60000: 60, 299999: 300}
	for ms, want := range cases {
		assert.Equal(t, want, Snapshot{RemainingMillis: ms}.RemainingSeconds(), "ms=%d", ms)
	}
}

func TestBackgroundTickerFiresOnce(t *testing.T) {
	fired := make(chan struct{}, 4)
	m := New(Config{
		IdleTime:    40 * time.Millisecond,
		WarningTime: 20 * time.Millisecond,
		Tick:        5 * time.Millisecond,
	}, func() { fired <- struct{}{} })
	defer m.Stop()

	m.Start()
	m.Reset()
	m.Reset()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("idle callback never fired")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, fired, 0, "no duplicate callbacks after repeated resets")
	assert.Equal(t, Expired, m.Snapshot().State)
}

func TestStopPreventsCallback(t *testing.T) {
	var fired atomic.Int32
	m := New(Config{
		IdleTime:    20 * time.Millisecond,
		WarningTime: 10 * time.Millisecond,
		Tick:        2 * time.Millisecond,
	}, func() { fired.Add(1) })

	m.Start()
	m.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestCallbackMayStopMonitor(t *testing.T) {
	done := make(chan struct{})
	var m *Monitor
	m = New(Config{
		IdleTime:    10 * time.Millisecond,
		WarningTime: 5 * time.Millisecond,
		Tick:        time.Millisecond,
	}, func() {
		m.Stop()
		close(done)
	})
	m.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback deadlocked or never ran")
	}
}
