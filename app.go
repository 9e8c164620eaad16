package appcore

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// Task is a deferred, zero-argument callable executed on the main
// goroutine. Ownership moves into the queue with [App.RunTask] and out
// again when the drain routine executes it; a task runs at most once.
type Task func()

// App lifecycle states.
const (
	stateLive uint32 = iota
	stateClosing
	stateClosed
)

// The process-wide singleton registry. At most one live App exists at any
// time; sequential construct/destroy cycles are permitted.
var (
	instanceMu sync.Mutex
	instance   *App
)

// Instance returns the one live application instance.
//
// Calling Instance before an App has been constructed (or after it has
// been destroyed) is an API-contract violation and panics; callers must
// guarantee construction ordering.
func Instance() *App {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		panic("appcore: Instance called with no live application")
	}
	return instance
}

// registerInstance installs a as the singleton, panicking if another live
// instance is already registered.
func registerInstance(a *App) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		panic("appcore: application instance already exists")
	}
	instance = a
}

// unregisterInstance removes a from the singleton registry, if it is the
// registered instance.
func unregisterInstance(a *App) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == a {
		instance = nil
	}
}

// App is the runtime core of an event-driven application. See the package
// documentation for the execution model. Construct via [New] (normally
// from a concrete backend's own constructor), destroy via [App.Close].
type App struct {
	backend Backend
	logger  *logiface.Logger[logiface.Event]

	// Identity of the goroutine that constructed the App; all task
	// execution and extension-point dispatch happens there.
	mainThread uint64

	taskMu    sync.Mutex
	taskQueue []Task
	taskBuf   []Task

	// Wakeup channel: cross-thread fd pair plus same-goroutine zero-delay
	// timer, both registered with the backend.
	wakeReadFd  int
	wakeWriteFd int
	wakeWatch   *FdWatch
	taskTimer   *Timer

	state       atomic.Uint32
	execStarted atomic.Bool

	// Construct fires once, synchronously, at the end of [New]. Since the
	// instance is only visible to callers afterwards, connecting to it is
	// permitted but inert for that construction.
	Construct *Signal
	// Destroy fires once, synchronously, at the start of [App.Close],
	// before any internal state is torn down; observers may still safely
	// query the instance.
	Destroy *Signal
	// ExecDone fires once, synchronously, on the main goroutine,
	// immediately before [App.Exec] returns.
	ExecDone *Signal
}

// New constructs the application runtime around the given backend.
//
// The calling goroutine becomes the main goroutine: the one that must
// later call [App.Exec] and [App.Close], and the only one tasks execute
// on. New registers the process-wide singleton and panics if a live
// instance already exists (documented fatal precondition, not a
// recoverable error). Failures to register the wakeup channel with the
// backend are returned as errors, with all partial state rolled back.
func New(backend Backend, opts ...Option) (*App, error) {
	if backend == nil {
		panic("appcore: New called with nil backend")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	a := &App{
		backend:    backend,
		logger:     cfg.logger,
		mainThread: CurrentThreadID(),
		Construct:  NewSignal(),
		Destroy:    NewSignal(),
		ExecDone:   NewSignal(),
	}
	if cfg.queueCapacity > 0 {
		a.taskQueue = make([]Task, 0, cfg.queueCapacity)
		a.taskBuf = make([]Task, 0, cfg.queueCapacity)
	}

	registerInstance(a)

	rfd, wfd, err := NewWakeFd()
	if err != nil {
		unregisterInstance(a)
		return nil, fmt.Errorf("appcore: create wakeup channel: %w", err)
	}
	a.wakeReadFd = rfd
	a.wakeWriteFd = wfd
	a.wakeWatch = NewFdWatch(rfd, WatchRead, a.handleWakeWatch)
	a.taskTimer = NewTimer(0, TimerOneShot, a.handleTaskTimer)

	if err := backend.AddWatch(a.wakeWatch); err != nil {
		a.closeWakeFds()
		unregisterInstance(a)
		return nil, fmt.Errorf("appcore: register wakeup watch: %w", err)
	}
	if err := backend.AddTimer(a.taskTimer); err != nil {
		_ = backend.DelWatch(a.wakeWatch)
		a.closeWakeFds()
		unregisterInstance(a)
		return nil, fmt.Errorf("appcore: register wakeup timer: %w", err)
	}

	a.logger.Debug().
		Uint64("thread", a.mainThread).
		Log("appcore: application constructed")

	a.Construct.Emit()
	return a, nil
}

// Close destroys the application: fires Destroy, discards queued tasks
// without executing them, deregisters the wakeup channel through the
// extension-point contract, and releases the singleton. Main-goroutine
// only. A second Close returns ErrAppClosed.
func (a *App) Close() error {
	a.assertMainThread("Close")

	if !a.state.CompareAndSwap(stateLive, stateClosing) {
		return ErrAppClosed
	}

	a.Destroy.Emit()

	a.clearTasks()

	if err := a.backend.DelTimer(a.taskTimer); err != nil {
		a.logger.Warning().Err(err).Log("appcore: deregister wakeup timer failed")
	}
	if err := a.backend.DelWatch(a.wakeWatch); err != nil {
		a.logger.Warning().Err(err).Log("appcore: deregister wakeup watch failed")
	}
	a.closeWakeFds()

	a.state.Store(stateClosed)
	unregisterInstance(a)

	a.logger.Debug().Log("appcore: application destroyed")
	return nil
}

// Exec enters the backend's wait loop and blocks the calling goroutine
// until [App.Quit] takes effect or ctx is cancelled. It must be called
// exactly once, from the main goroutine; violations panic. The ExecDone
// signal fires exactly once, immediately before Exec returns.
func (a *App) Exec(ctx context.Context) error {
	a.assertMainThread("Exec")
	if a.state.Load() != stateLive {
		panic("appcore: Exec called after teardown began")
	}
	if !a.execStarted.CompareAndSwap(false, true) {
		panic("appcore: Exec called twice")
	}

	err := a.backend.Exec(ctx)

	a.ExecDone.Emit()
	return err
}

// Quit requests that [App.Exec] return after the current dispatch cycle
// completes. Safe from any goroutine; a task already executing is never
// preempted.
func (a *App) Quit() {
	a.backend.Quit()
}

// ThreadID returns the identity of the main goroutine, fixed at
// construction. Safe from any goroutine.
func (a *App) ThreadID() uint64 {
	return a.mainThread
}

// RunTask schedules a task for execution on the main goroutine, on the
// next wait-loop iteration. Safe to call concurrently from any number of
// goroutines, including the main goroutine itself (also from within an
// executing task, in which case the new task runs in the next drain).
//
// Tasks scheduled sequentially by one goroutine execute in that order; no
// ordering holds across goroutines. Calling RunTask once teardown has
// begun is an API-contract violation and panics; a producer racing
// destruction must not assume its task will run.
func (a *App) RunTask(task Task) {
	if task == nil {
		return
	}
	if a.state.Load() != stateLive {
		panic("appcore: RunTask called after teardown began")
	}

	a.taskMu.Lock()
	wasEmpty := len(a.taskQueue) == 0
	a.taskQueue = append(a.taskQueue, task)
	a.taskMu.Unlock()

	// Only the empty-to-non-empty transition needs a wakeup; anything
	// already queued has one pending.
	if !wasEmpty {
		return
	}

	if CurrentThreadID() == a.mainThread {
		// Same-goroutine path: arm the zero-delay timer instead of paying
		// for a kernel round trip. It fires on the next loop iteration.
		a.taskTimer.Reset()
	} else {
		a.wake()
	}
}

// wake writes to the cross-thread wakeup fd.
func (a *App) wake() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := writeFD(a.wakeWriteFd, buf[:]); err != nil {
		// EAGAIN means a wakeup is already pending; other errors happen
		// only when the fd is torn down concurrently, in which case the
		// queue is discarded anyway.
		a.logger.Debug().Err(err).Log("appcore: wakeup write failed")
	}
}

// handleWakeWatch is the wakeup watch handler: consume the pending
// notification, then drain. Consuming first means a producer racing the
// drain can at worst cause a spurious wakeup, never a missed one.
func (a *App) handleWakeWatch(*FdWatch) {
	a.drainWakeFd()
	a.processTaskQueue()
}

// handleTaskTimer is the zero-delay timer handler for the same-goroutine
// scheduling path.
func (a *App) handleTaskTimer(*Timer) {
	a.processTaskQueue()
}

// drainWakeFd consumes all pending wakeup notifications.
func (a *App) drainWakeFd() {
	var buf [8]byte
	for {
		if _, err := readFD(a.wakeReadFd, buf[:]); err != nil {
			break
		}
	}
}

// processTaskQueue moves the entire queue out from under the lock and
// executes it in order, outside the lock, so a task that itself calls
// RunTask neither deadlocks nor runs its new task inline.
func (a *App) processTaskQueue() {
	a.assertMainThread("processTaskQueue")

	a.taskMu.Lock()
	tasks := a.taskQueue
	a.taskQueue = a.taskBuf[:0]
	a.taskBuf = tasks[:0]
	a.taskMu.Unlock()

	for i, t := range tasks {
		a.safeExecute(t)
		tasks[i] = nil
	}
}

// clearTasks discards all queued tasks without executing them.
func (a *App) clearTasks() {
	a.taskMu.Lock()
	n := len(a.taskQueue)
	a.taskQueue = nil
	a.taskBuf = nil
	a.taskMu.Unlock()

	if n > 0 {
		a.logger.Debug().Int("dropped", n).Log("appcore: discarded queued tasks")
	}
}

// safeExecute runs a task with panic recovery. A failing task is the
// producer's responsibility; it must not stop the rest of the batch.
func (a *App) safeExecute(t Task) {
	if t == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Err().Any("panic", r).Log("appcore: task panicked")
		}
	}()

	t()
}

// AddWatch registers a readiness watch with the backend's wait loop.
func (a *App) AddWatch(w *FdWatch) error { return a.backend.AddWatch(w) }

// DelWatch removes a readiness watch from the backend's wait loop.
func (a *App) DelWatch(w *FdWatch) error { return a.backend.DelWatch(w) }

// AddTimer registers a timer with the backend's wait loop.
func (a *App) AddTimer(t *Timer) error { return a.backend.AddTimer(t) }

// DelTimer removes a timer from the backend's wait loop.
func (a *App) DelTimer(t *Timer) error { return a.backend.DelTimer(t) }

// NewResolverWorker returns a new asynchronous name resolution worker
// from the backend. Ownership transfers to the caller.
func (a *App) NewResolverWorker(label string) (ResolverWorker, error) {
	return a.backend.NewResolverWorker(label)
}

// closeWakeFds closes the wakeup channel descriptors.
func (a *App) closeWakeFds() {
	_ = closeFD(a.wakeReadFd)
	if a.wakeWriteFd != a.wakeReadFd {
		_ = closeFD(a.wakeWriteFd)
	}
}

// assertMainThread panics unless called on the main goroutine.
func (a *App) assertMainThread(op string) {
	if id := CurrentThreadID(); id != a.mainThread {
		panic(fmt.Sprintf("appcore: %s called from goroutine %d, not the main goroutine %d",
			op, id, a.mainThread))
	}
}

// CurrentThreadID returns the calling goroutine's identity, comparable
// with [App.ThreadID]. Collaborators that are main-goroutine-only should
// assert equality explicitly rather than rely on implicit single-threaded
// assumptions.
func CurrentThreadID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
