//go:build linux || darwin

// Package pollapp provides a poll(2)-based backend for the appcore
// runtime. It implements the extension-point contract with a single
// blocking wait loop: registered readiness watches become entries in the
// pollfd set, registered timers bound the poll timeout, and quit requests
// interrupt a blocked poll through a dedicated wakeup descriptor.
package pollapp

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	appcore "github.com/radiolink/go-appcore"
	"golang.org/x/sys/unix"
)

// maxPollInterval bounds a single poll when no timer is due sooner.
const maxPollInterval = 10 * time.Second

// App is the poll(2)-based application backend. Construct via [New],
// which also constructs the runtime core; access the core through
// [App.Core].
//
// The registration methods (AddWatch, DelWatch, AddTimer, DelTimer) are
// safe from the constructing goroutine before Exec starts and from the
// main goroutine afterwards, including from within watch and timer
// callbacks. Quit is safe from any goroutine.
type App struct {
	core *appcore.App

	// Dedicated quit wakeup, separate from the core's wakeup channel, so
	// Quit can interrupt a blocked poll without touching core state.
	quitFdRead  int
	quitFdWrite int
	quitting    atomic.Bool
	closeOnce   sync.Once

	mu      sync.Mutex
	watches map[int]*appcore.FdWatch
	timers  []*appcore.Timer

	// Scratch buffers rebuilt each wait cycle, main goroutine only.
	pollFds   []unix.PollFd
	pollWatch []*appcore.FdWatch
}

// New constructs the backend and then the runtime core around it. The
// calling goroutine becomes the application's main goroutine.
func New(opts ...appcore.Option) (*App, error) {
	rfd, wfd, err := appcore.NewWakeFd()
	if err != nil {
		return nil, fmt.Errorf("pollapp: create quit fd: %w", err)
	}

	b := &App{
		quitFdRead:  rfd,
		quitFdWrite: wfd,
		watches:     make(map[int]*appcore.FdWatch),
	}

	core, err := appcore.New(b, opts...)
	if err != nil {
		b.closeQuitFds()
		return nil, err
	}
	b.core = core
	return b, nil
}

// Core returns the runtime core. Application code schedules tasks, runs
// the loop, and subscribes to lifecycle signals through it.
func (b *App) Core() *appcore.App {
	return b.core
}

// Close destroys the runtime core and releases the backend's own
// descriptors. Main-goroutine only; a second Close returns ErrAppClosed.
func (b *App) Close() error {
	err := b.core.Close()
	b.closeQuitFds()
	return err
}

func (b *App) closeQuitFds() {
	b.closeOnce.Do(func() {
		_ = unix.Close(b.quitFdRead)
		if b.quitFdWrite != b.quitFdRead {
			_ = unix.Close(b.quitFdWrite)
		}
	})
}

// Exec runs the wait loop until Quit is observed or ctx is cancelled.
// Application code should call Core().Exec instead, which wraps this and
// fires the ExecDone signal.
func (b *App) Exec(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Watcher goroutine turns context cancellation into a quit request so
	// a blocked poll returns promptly.
	ctxDone := make(chan struct{})
	defer close(ctxDone)
	go func() {
		select {
		case <-ctx.Done():
			b.Quit()
		case <-ctxDone:
		}
	}()

	for !b.quitting.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.waitCycle(); err != nil {
			return err
		}
	}
	// A cancellation that arrived mid-poll exits via the quit path; the
	// caller still sees the context error.
	return ctx.Err()
}

// Quit requests that Exec return once the current dispatch cycle
// completes. Safe from any goroutine; idempotent.
func (b *App) Quit() {
	if b.quitting.CompareAndSwap(false, true) {
		var buf [8]byte
		binary.NativeEndian.PutUint64(buf[:], 1)
		_, _ = unix.Write(b.quitFdWrite, buf[:])
	}
}

// waitCycle is a single iteration of the wait loop: poll all enabled
// watches (bounded by the earliest timer deadline), dispatch whatever
// became ready, then fire due timers.
func (b *App) waitCycle() error {
	timeout := b.nextTimeout()
	fds, watches := b.buildPollSet()

	n, err := unix.Poll(fds, timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("pollapp: poll: %w", err)
	}

	if n > 0 {
		b.dispatchReady(fds, watches)
	}
	b.fireDueTimers()
	return nil
}

// buildPollSet rebuilds the pollfd scratch buffers. Index 0 is always the
// quit descriptor; enabled watches follow, aligned with pollWatch.
func (b *App) buildPollSet() ([]unix.PollFd, []*appcore.FdWatch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pollFds = b.pollFds[:0]
	b.pollWatch = b.pollWatch[:0]

	b.pollFds = append(b.pollFds, unix.PollFd{Fd: int32(b.quitFdRead), Events: unix.POLLIN})
	b.pollWatch = append(b.pollWatch, nil)

	for _, w := range b.watches {
		if !w.Enabled() {
			continue
		}
		var events int16
		if w.Kind()&appcore.WatchRead != 0 {
			events |= unix.POLLIN
		}
		if w.Kind()&appcore.WatchWrite != 0 {
			events |= unix.POLLOUT
		}
		b.pollFds = append(b.pollFds, unix.PollFd{Fd: int32(w.Fd()), Events: events})
		b.pollWatch = append(b.pollWatch, w)
	}

	return b.pollFds, b.pollWatch
}

// dispatchReady invokes the handler of each ready watch, outside the
// registration lock. A watch deregistered earlier in the same batch is
// skipped.
func (b *App) dispatchReady(fds []unix.PollFd, watches []*appcore.FdWatch) {
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}

		if i == 0 {
			b.drainQuitFd()
			continue
		}

		w := watches[i]
		b.mu.Lock()
		registered := b.watches[w.Fd()] == w
		b.mu.Unlock()
		if registered {
			w.Dispatch()
		}
	}
}

// drainQuitFd consumes pending quit notifications.
func (b *App) drainQuitFd() {
	var buf [8]byte
	for {
		if _, err := unix.Read(b.quitFdRead, buf[:]); err != nil {
			break
		}
	}
}

// nextTimeout returns the poll timeout in milliseconds: the delay until
// the earliest armed timer deadline, clamped to maxPollInterval, with
// sub-millisecond delays rounded up to 1ms so a due-but-not-quite timer
// does not busy-spin.
func (b *App) nextTimeout() int {
	maxDelay := maxPollInterval

	b.mu.Lock()
	now := time.Now()
	for _, t := range b.timers {
		deadline, armed := t.Deadline()
		if !armed {
			continue
		}
		delay := deadline.Sub(now)
		if delay < 0 {
			delay = 0
		}
		if delay < maxDelay {
			maxDelay = delay
		}
	}
	b.mu.Unlock()

	if maxDelay > 0 && maxDelay < time.Millisecond {
		return 1
	}
	return int(maxDelay.Milliseconds())
}

// fireDueTimers expires every registered timer whose deadline has
// passed. Handlers run outside the registration lock; a timer
// deregistered earlier in the same batch is skipped.
func (b *App) fireDueTimers() {
	b.mu.Lock()
	due := make([]*appcore.Timer, 0, len(b.timers))
	now := time.Now()
	for _, t := range b.timers {
		if deadline, armed := t.Deadline(); armed && !deadline.After(now) {
			due = append(due, t)
		}
	}
	b.mu.Unlock()

	for _, t := range due {
		b.mu.Lock()
		registered := b.timerRegistered(t)
		b.mu.Unlock()
		if registered {
			t.Fire()
		}
	}
}

// timerRegistered reports whether t is registered. Caller holds b.mu.
func (b *App) timerRegistered(t *appcore.Timer) bool {
	for _, r := range b.timers {
		if r == t {
			return true
		}
	}
	return false
}

// AddWatch registers a readiness watch with the wait loop.
func (b *App) AddWatch(w *appcore.FdWatch) error {
	if w == nil || w.Fd() < 0 {
		return appcore.ErrWatchNotRegistered
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.watches[w.Fd()]; ok {
		return appcore.ErrWatchAlreadyRegistered
	}
	b.watches[w.Fd()] = w
	return nil
}

// DelWatch removes a previously registered readiness watch.
func (b *App) DelWatch(w *appcore.FdWatch) error {
	if w == nil {
		return appcore.ErrWatchNotRegistered
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.watches[w.Fd()] != w {
		return appcore.ErrWatchNotRegistered
	}
	delete(b.watches, w.Fd())
	return nil
}

// AddTimer registers a timer with the wait loop.
func (b *App) AddTimer(t *appcore.Timer) error {
	if t == nil {
		return appcore.ErrTimerNotRegistered
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timerRegistered(t) {
		return appcore.ErrTimerAlreadyRegistered
	}
	b.timers = append(b.timers, t)
	return nil
}

// DelTimer removes a previously registered timer.
func (b *App) DelTimer(t *appcore.Timer) error {
	if t == nil {
		return appcore.ErrTimerNotRegistered
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, r := range b.timers {
		if r == t {
			b.timers = append(b.timers[:i], b.timers[i+1:]...)
			return nil
		}
	}
	return appcore.ErrTimerNotRegistered
}
