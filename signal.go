package appcore

import (
	"sync"
)

// ConnectionID uniquely identifies a connected observer for disconnection
// purposes. Go functions cannot be reliably compared for equality, so each
// connection is issued a unique ID instead.
type ConnectionID uint64

// signalEntry pairs an observer with its ID for removal.
type signalEntry struct {
	id ConnectionID
	fn func()
}

// Signal is an ordered, synchronous, multi-observer broadcast point.
//
// Observers are invoked in registration order. Dispatch takes a snapshot
// of the observer list under the lock and invokes it outside the lock, so
// an observer may connect or disconnect observers of the same signal
// during dispatch; such changes take effect only for later emissions.
//
// The lifecycle signals on [App] (Construct, Destroy, ExecDone) each fire
// at most once per application lifetime, so connecting to one of them
// during its own dispatch is permitted but inert.
//
// Thread Safety: Signal is safe for concurrent use from multiple
// goroutines, though the lifecycle signals are always emitted from a
// single goroutine.
type Signal struct {
	mu      sync.Mutex
	entries []signalEntry
	nextID  ConnectionID
}

// NewSignal creates an empty Signal.
func NewSignal() *Signal {
	return &Signal{nextID: 1}
}

// Connect registers an observer and returns its ConnectionID.
// A nil observer is ignored and reports ID 0.
func (s *Signal) Connect(fn func()) ConnectionID {
	if fn == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, signalEntry{id: id, fn: fn})
	return id
}

// Disconnect removes the observer with the given ID, reporting whether an
// observer was removed.
func (s *Signal) Disconnect(id ConnectionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Emit invokes all currently connected observers, in registration order.
//
// The observer list is copied under the lock and invoked outside it, so
// observers may safely call Connect or Disconnect on the same signal.
// Panics from observers propagate to the caller.
func (s *Signal) Emit() {
	s.mu.Lock()
	entries := make([]signalEntry, len(s.entries))
	copy(entries, s.entries)
	s.mu.Unlock()

	for _, e := range entries {
		e.fn()
	}
}

// ConnectionCount returns the number of connected observers.
func (s *Signal) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
