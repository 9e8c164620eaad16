//go:build linux || darwin

package pollapp

import (
	"context"
	"errors"
	"net"
	"sync"

	appcore "github.com/radiolink/go-appcore"
)

// ErrResolverClosed is returned by Lookup after the worker has been
// closed.
var ErrResolverClosed = errors.New("pollapp: resolver worker closed")

// resolverWorker resolves names on worker goroutines and delivers each
// completion back onto the main goroutine through the task queue.
type resolverWorker struct {
	label    string
	core     *appcore.App
	resolver *net.Resolver
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewResolverWorker returns an asynchronous name resolution worker backed
// by the net package's resolver. Ownership transfers to the caller, which
// must Close the worker before the application is destroyed.
func (b *App) NewResolverWorker(label string) (appcore.ResolverWorker, error) {
	if b.quitting.Load() {
		return nil, appcore.ErrBackendStopped
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &resolverWorker{
		label:    label,
		core:     b.core,
		resolver: net.DefaultResolver,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Label returns the diagnostic label the worker was created with.
func (w *resolverWorker) Label() string { return w.label }

// Lookup resolves host on a worker goroutine. The done callback is
// invoked exactly once, on the main goroutine, unless the worker is
// closed first, in which case the completion is discarded.
func (w *resolverWorker) Lookup(host string, done func(addrs []net.IP, err error)) error {
	if done == nil {
		return errors.New("pollapp: Lookup requires a completion callback")
	}
	if w.ctx.Err() != nil {
		return ErrResolverClosed
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		addrs, err := w.resolver.LookupIPAddr(w.ctx, host)

		// Closed while in flight: the completion is discarded rather than
		// racing task submission against application teardown.
		if w.ctx.Err() != nil {
			return
		}

		ips := make([]net.IP, 0, len(addrs))
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
		w.core.RunTask(func() {
			done(ips, err)
		})
	}()
	return nil
}

// Close aborts in-flight lookups and waits for worker goroutines to
// finish. Safe to call more than once.
func (w *resolverWorker) Close() error {
	w.cancel()
	w.wg.Wait()
	return nil
}
