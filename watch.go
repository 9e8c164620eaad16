package appcore

import (
	"sync/atomic"
)

// WatchKind represents the readiness condition an [FdWatch] monitors.
type WatchKind uint32

const (
	// WatchRead indicates the file descriptor should be watched for
	// readability.
	WatchRead WatchKind = 1 << iota
	// WatchWrite indicates the file descriptor should be watched for
	// writability.
	WatchWrite
)

// String returns a human-readable representation of the watch kind.
func (k WatchKind) String() string {
	switch k {
	case WatchRead:
		return "Read"
	case WatchWrite:
		return "Write"
	case WatchRead | WatchWrite:
		return "ReadWrite"
	default:
		return "Unknown"
	}
}

// FdWatch asks the backend's wait loop to invoke a handler when a file
// descriptor becomes ready. It is the readiness-watch collaborator of the
// extension-point contract: constructed by application code (or by the
// runtime itself, for the wakeup channel), registered via
// [App.AddWatch], dispatched by the backend on the main goroutine.
//
// A watch starts enabled. Disabling it keeps the registration but
// suppresses both polling and dispatch; the backend consults
// [FdWatch.Enabled] for each wait cycle.
type FdWatch struct {
	fd      int
	kind    WatchKind
	handler func(*FdWatch)
	enabled atomic.Bool
}

// NewFdWatch creates a watch for the given file descriptor and readiness
// kind. The handler is invoked by the backend, on the main goroutine, each
// time the descriptor is reported ready while the watch is enabled.
func NewFdWatch(fd int, kind WatchKind, handler func(*FdWatch)) *FdWatch {
	w := &FdWatch{fd: fd, kind: kind, handler: handler}
	w.enabled.Store(true)
	return w
}

// Fd returns the watched file descriptor.
func (w *FdWatch) Fd() int { return w.fd }

// Kind returns the readiness condition being watched.
func (w *FdWatch) Kind() WatchKind { return w.kind }

// Enabled reports whether the watch is currently enabled.
func (w *FdWatch) Enabled() bool { return w.enabled.Load() }

// SetEnabled enables or disables the watch without deregistering it.
func (w *FdWatch) SetEnabled(enabled bool) { w.enabled.Store(enabled) }

// Dispatch invokes the watch handler if the watch is enabled. Backends
// call this, on the main goroutine, for each watch reported ready.
func (w *FdWatch) Dispatch() {
	if w.enabled.Load() && w.handler != nil {
		w.handler(w)
	}
}
