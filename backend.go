package appcore

import (
	"context"
	"net"
)

// Backend is the extension-point contract a concrete wait-loop
// implementation must fulfil. The runtime core calls into the backend,
// never the reverse; everything backend-specific (which multiplexing
// syscall, how timers are tracked, how lookups are performed) lives
// behind this interface.
//
// All methods except Quit, AddWatch, DelWatch, AddTimer and DelTimer are
// main-goroutine-only. Registration methods must be callable from the
// constructing goroutine before Exec has started, and from the main
// goroutine afterwards.
type Backend interface {
	// Exec enters the backend's blocking wait loop. It returns only after
	// Quit has been observed, or when ctx is cancelled (returning
	// ctx.Err()). Each wait cycle the backend fires due timers and
	// dispatches ready watches; it checks for quit only between dispatch
	// cycles, never preempting a running callback.
	//
	// Application code should call [App.Exec], which wraps this and fires
	// the ExecDone signal.
	Exec(ctx context.Context) error

	// Quit requests that Exec return at the next safe opportunity, after
	// the current dispatch cycle completes. Safe from any goroutine,
	// idempotent, and a no-op if Exec has not started (Exec then returns
	// immediately when called).
	Quit()

	// AddWatch registers a readiness watch with the wait loop.
	AddWatch(w *FdWatch) error
	// DelWatch removes a previously registered readiness watch.
	DelWatch(w *FdWatch) error

	// AddTimer registers a timer with the wait loop. The timer's armed
	// state is owned by the timer itself; registration only makes the
	// backend consider it when bounding its wait.
	AddTimer(t *Timer) error
	// DelTimer removes a previously registered timer.
	DelTimer(t *Timer) error

	// NewResolverWorker returns a backend-specific asynchronous name
	// resolution worker. Ownership transfers to the caller, which must
	// Close the worker before the application is destroyed.
	NewResolverWorker(label string) (ResolverWorker, error)
}

// ResolverWorker performs asynchronous name resolution on behalf of the
// application. Lookups run off the main goroutine; their completions are
// delivered back onto it via the task queue.
type ResolverWorker interface {
	// Label returns the diagnostic label the worker was created with.
	Label() string

	// Lookup resolves host asynchronously. The done callback is invoked
	// exactly once, on the main goroutine, with the resolved addresses or
	// an error. A lookup still in flight when the worker is closed is
	// discarded without invoking done.
	Lookup(host string, done func(addrs []net.IP, err error)) error

	// Close aborts in-flight lookups and waits for worker resources to be
	// released. Must be called before the application is destroyed.
	Close() error
}
