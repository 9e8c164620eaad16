// Package appcore is the runtime core for event-driven applications: a
// single main loop per process, a thread-safe way to schedule work onto
// that loop from any goroutine, and the extension-point contract through
// which a concrete backend wires in I/O readiness notification, timers,
// and asynchronous name resolution.
//
// # Architecture
//
// The runtime is built around a singleton [App] constructed by a concrete
// [Backend] (see [New]). The backend owns the blocking wait loop; the core
// owns the deferred-task queue, the wakeup channel that interrupts the
// wait loop, the main-goroutine identity, and the lifecycle signals. The
// core calls into the backend through the [Backend] contract, never the
// reverse.
//
// Control flow: the backend constructs the [App] (registering the
// singleton and capturing the constructing goroutine as the main
// goroutine), then the application calls [App.Exec], which blocks inside
// the backend's wait loop until [App.Quit]. Any goroutine may call
// [App.RunTask]; the task is queued and executed on the main goroutine on
// the next loop iteration.
//
// # Thread Safety
//
//   - [App.RunTask] is safe to call from any goroutine, including the
//     main goroutine itself.
//   - [App.ThreadID] and [Instance] are safe from any goroutine.
//   - [App.Exec] and [App.Close] must run on the main goroutine; this is
//     asserted explicitly.
//   - Queued tasks always execute on the main goroutine, in FIFO order
//     per producer. A task that panics is logged and does not prevent the
//     rest of its batch from running.
//
// # Wakeup Channel
//
// Two signaling paths feed the same drain routine, both registered with
// the backend through the extension-point contract: an eventfd (Linux) or
// non-blocking self-pipe (Darwin) written by producer goroutines, and a
// zero-delay one-shot [Timer] used when the producer is the main
// goroutine itself, avoiding the kernel round trip. Spurious wakeups are
// possible; missed wakeups are not.
//
// # Lifecycle
//
// At most one live [App] exists per process. [Instance] with no live app,
// a second [New] while one is live, and [App.RunTask] after teardown has
// begun are API-contract violations and panic. Three lifecycle signals
// fire at most once each: Construct (after construction completes),
// Destroy (at the start of teardown, before any state is torn down), and
// ExecDone (immediately before [App.Exec] returns).
//
// A concrete poll(2)-based backend is provided by the pollapp package.
package appcore
