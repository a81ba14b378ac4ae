// Package idle tracks user inactivity for one session. The monitor keeps a
// deadline instead of decrementing a counter, and a periodic tick only
// re-evaluates it, so the countdown does not drift.
package idle

import (
	"sync"
	"time"
)

const (
	DefaultIdleTime    = 5 * time.Minute
	DefaultWarningTime = 60 * time.Second
	DefaultTick        = time.Second
)

type State int

const (
	Active State = iota
	Warning
	Expired
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Warning:
		return "warning"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Clock is the time source. Tests replace it to step time by hand.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Config struct {
	IdleTime    time.Duration
	WarningTime time.Duration
	Tick        time.Duration
	Clock       Clock
}

func (c Config) withDefaults() Config {
	if c.IdleTime <= 0 {
		c.IdleTime = DefaultIdleTime
	}
	if c.WarningTime <= 0 {
		c.WarningTime = DefaultWarningTime
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	return c
}

// Snapshot is the read model exposed for display.
type Snapshot struct {
	State           State
	RemainingMillis int64
	Warning         bool
}

// RemainingSeconds rounds up so "0" is only shown once expired.
func (s Snapshot) RemainingSeconds() int64 {
	return (s.RemainingMillis + 999) / 1000
}

// Monitor is safe for concurrent use. The idle callback runs at most once
// per countdown and never while the monitor's lock is held.
type Monitor struct {
	cfg    Config
	onIdle func()

	mu       sync.Mutex
	deadline time.Time
	warning  bool
	expired  bool
	started  bool
	stop     chan struct{}
	done     chan struct{}
}

// New creates a stopped monitor. Call Start to begin the countdown.
func New(cfg Config, onIdle func()) *Monitor {
	return &Monitor{cfg: cfg.withDefaults(), onIdle: onIdle}
}

// Start begins the countdown. It is Reset under another name.
func (m *Monitor) Start() {
	m.Reset()
}

// Reset cancels any running ticker, restores the full idle time and starts
// a fresh ticker. It also revives an expired monitor.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.stopTickerLocked()
	m.deadline = m.cfg.Clock.Now().Add(m.cfg.IdleTime)
	m.warning = false
	m.expired = false
	m.started = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stop, m.done)
	m.mu.Unlock()
}

// Activity records user input and reports whether the countdown was reset.
// It is ignored before Start and once the deadline has passed; a deadline
// that passed without a tick expires here, firing the callback.
func (m *Monitor) Activity() bool {
	now := m.cfg.Clock.Now()
	m.mu.Lock()
	_, fire := m.advanceLocked(now)
	if fire || m.expired || !m.started {
		m.mu.Unlock()
		if fire && m.onIdle != nil {
			m.onIdle()
		}
		return false
	}
	m.deadline = now.Add(m.cfg.IdleTime)
	m.warning = false
	m.mu.Unlock()
	return true
}

// Tick re-evaluates the countdown at now. The background ticker calls it;
// tests call it directly.
func (m *Monitor) Tick(now time.Time) Snapshot {
	m.mu.Lock()
	snap, fire := m.advanceLocked(now)
	m.mu.Unlock()
	if fire && m.onIdle != nil {
		m.onIdle()
	}
	return snap
}

// Snapshot returns the state as of the clock's current time.
func (m *Monitor) Snapshot() Snapshot {
	return m.Tick(m.cfg.Clock.Now())
}

func (m *Monitor) RemainingSeconds() int64 {
	return m.Snapshot().RemainingSeconds()
}

// Stop halts the ticker without firing the callback, e.g. on logout.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopTickerLocked()
	m.started = false
	m.mu.Unlock()
}

func (m *Monitor) advanceLocked(now time.Time) (Snapshot, bool) {
	if !m.started && !m.expired {
		return Snapshot{State: Active, RemainingMillis: m.cfg.IdleTime.Milliseconds()}, false
	}
	if m.expired {
		return Snapshot{State: Expired, Warning: true}, false
	}

	remaining := m.deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	if remaining <= m.cfg.WarningTime {
		m.warning = true
	}
	if remaining == 0 {
		m.expired = true
		m.started = false
		m.signalStopLocked()
		m.done = nil
		return Snapshot{State: Expired, Warning: true}, true
	}

	state := Active
	if m.warning {
		state = Warning
	}
	return Snapshot{State: state, RemainingMillis: remaining.Milliseconds(), Warning: m.warning}, false
}

func (m *Monitor) run(stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(m.cfg.Tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if m.Tick(m.cfg.Clock.Now()).State == Expired {
				return
			}
		}
	}
}

// signalStopLocked asks the ticker goroutine to exit without waiting, since
// it may be the caller.
func (m *Monitor) signalStopLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// stopTickerLocked stops the ticker goroutine and waits for it. The lock is
// released while waiting so an in-flight Tick can finish; a ticker started
// by someone else in that window is stopped too.
func (m *Monitor) stopTickerLocked() {
	for m.done != nil {
		done := m.done
		m.signalStopLocked()
		m.done = nil
		m.mu.Unlock()
		<-done
		m.mu.Lock()
	}
}
