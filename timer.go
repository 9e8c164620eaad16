package appcore

import (
	"sync"
	"time"
)

// TimerKind selects one-shot or periodic expiration.
type TimerKind int

const (
	// TimerOneShot expires once and disables itself.
	TimerOneShot TimerKind = iota
	// TimerPeriodic re-arms itself after each expiration.
	TimerPeriodic
)

// String returns a human-readable representation of the timer kind.
func (k TimerKind) String() string {
	switch k {
	case TimerOneShot:
		return "OneShot"
	case TimerPeriodic:
		return "Periodic"
	default:
		return "Unknown"
	}
}

// Timer asks the backend's wait loop to invoke a handler after a delay.
// It is the timed-callback collaborator of the extension-point contract:
// constructed by application code (or by the runtime itself, for the
// same-goroutine wakeup path), registered via [App.AddTimer], fired by
// the backend on the main goroutine.
//
// A timer is created disabled; [Timer.SetEnabled] arms it relative to the
// current time. The backend uses [Timer.Deadline] to bound its wait and
// [Timer.Fire] to expire it. A zero duration produces a timer that fires
// on the next wait-loop iteration.
type Timer struct {
	d       time.Duration
	kind    TimerKind
	handler func(*Timer)

	mu       sync.Mutex
	enabled  bool
	deadline time.Time
}

// NewTimer creates a disabled timer with the given expiration delay and
// kind. The handler is invoked by the backend on the main goroutine.
func NewTimer(d time.Duration, kind TimerKind, handler func(*Timer)) *Timer {
	return &Timer{d: d, kind: kind, handler: handler}
}

// Timeout returns the configured expiration delay.
func (t *Timer) Timeout() time.Duration { return t.d }

// Kind returns the timer kind.
func (t *Timer) Kind() TimerKind { return t.kind }

// Enabled reports whether the timer is currently armed.
func (t *Timer) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled arms or disarms the timer. Arming an already armed timer
// restarts its delay from now.
func (t *Timer) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if enabled {
		t.deadline = time.Now().Add(t.d)
	} else {
		t.deadline = time.Time{}
	}
}

// Reset restarts the timer's delay from now, arming it if necessary.
func (t *Timer) Reset() { t.SetEnabled(true) }

// Deadline returns the current expiration time, and whether the timer is
// armed at all. Backends use this to bound their wait.
func (t *Timer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.enabled
}

// Fire expires the timer: a one-shot timer disables itself, a periodic
// timer re-arms, and then the handler runs. Backends call this, on the
// main goroutine, once the deadline has passed. Firing a disarmed timer
// is a no-op.
func (t *Timer) Fire() {
	t.mu.Lock()
	if !t.enabled {
		t.mu.Unlock()
		return
	}
	if t.kind == TimerOneShot {
		t.enabled = false
		t.deadline = time.Time{}
	} else {
		t.deadline = time.Now().Add(t.d)
	}
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler(t)
	}
}
