package timer

import (
	"errors"
	"sync"
	"time"
)

// Timer errors.
var (
	ErrTimerNotFound   = errors.New("timer not found")
	ErrInvalidDuration = errors.New("invalid duration")
)

// Timer describes an active timer.
type Timer[K comparable] struct {
	// Key identifies this timer.
	Key K

	// StartTime is when the timer was (re)started.
	StartTime time.Time

	// Duration is the timer duration.
	Duration time.Duration

	gen  uint64
	stop Stopper
}

// ExpiresAt returns when the timer will expire.
func (t *Timer[K]) ExpiresAt() time.Time {
	return t.StartTime.Add(t.Duration)
}

// Manager manages a set of keyed timers.
type Manager[K comparable] struct {
	mu sync.Mutex

	clock  Clock
	gen    uint64
	timers map[K]*Timer[K]

	onExpiry func(key K)
}

// NewManager creates a timer manager on the wall clock.
func NewManager[K comparable]() *Manager[K] {
	return NewManagerWithClock[K](RealClock{})
}

// NewManagerWithClock creates a timer manager on the given clock.
func NewManagerWithClock[K comparable](clock Clock) *Manager[K] {
	if clock == nil {
		clock = RealClock{}
	}
	return &Manager[K]{
		clock:  clock,
		timers: make(map[K]*Timer[K]),
	}
}

// Clock returns the manager's clock.
func (m *Manager[K]) Clock() Clock {
	return m.clock
}

// OnExpiry sets the callback for timer expiry. The callback runs outside the
// manager's lock and must not block for long.
func (m *Manager[K]) OnExpiry(fn func(key K)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpiry = fn
}

// SetTimer starts a timer for key, replacing any timer already running for it.
func (m *Manager[K]) SetTimer(key K, d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.timers[key]; ok {
		existing.stop.Stop()
	}

	m.gen++
	gen := m.gen
	t := &Timer[K]{
		Key:       key,
		StartTime: m.clock.Now(),
		Duration:  d,
		gen:       gen,
	}
	m.timers[key] = t
	t.stop = m.clock.AfterFunc(d, func() {
		m.expire(key, gen)
	})
	return nil
}

// CancelTimer cancels the timer for key without invoking the expiry callback.
func (m *Manager[K]) CancelTimer(key K) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[key]
	if !ok {
		return ErrTimerNotFound
	}
	t.stop.Stop()
	delete(m.timers, key)
	return nil
}

// CancelMatching cancels every timer whose key satisfies match and returns
// how many were cancelled.
func (m *Manager[K]) CancelMatching(match func(K) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key, t := range m.timers {
		if match(key) {
			t.stop.Stop()
			delete(m.timers, key)
			n++
		}
	}
	return n
}

// CancelAll cancels every timer.
func (m *Manager[K]) CancelAll() {
	m.CancelMatching(func(K) bool { return true })
}

// Has reports whether a timer is running for key.
func (m *Manager[K]) Has(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[key]
	return ok
}

// Get returns a copy of the timer for key, or nil.
func (m *Manager[K]) Get(key K) *Timer[K] {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[key]
	if !ok {
		return nil
	}
	return &Timer[K]{Key: t.Key, StartTime: t.StartTime, Duration: t.Duration}
}

// RemainingTime returns the time left on the timer for key, or zero.
func (m *Manager[K]) RemainingTime(key K) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[key]
	if !ok {
		return 0
	}
	remaining := t.Duration - m.clock.Now().Sub(t.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Count returns the number of running timers.
func (m *Manager[K]) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manager[K]) expire(key K, gen uint64) {
	m.mu.Lock()
	t, ok := m.timers[key]
	if !ok || t.gen != gen {
		m.mu.Unlock()
		return
	}
	delete(m.timers, key)
	callback := m.onExpiry
	m.mu.Unlock()

	if callback != nil {
		callback(key)
	}
}
