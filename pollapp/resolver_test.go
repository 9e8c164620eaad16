//go:build linux || darwin

package pollapp_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcore "github.com/radiolink/go-appcore"
	"github.com/radiolink/go-appcore/pollapp"
)

func TestResolverWorker_DeliversOnMainGoroutine(t *testing.T) {
	b := newApp(t)
	core := b.Core()

	worker, err := core.NewResolverWorker("test-lookup")
	require.NoError(t, err)
	defer func() { _ = worker.Close() }()

	assert.Equal(t, "test-lookup", worker.Label())

	var deliveries int
	var deliveredOn uint64
	var lookupErr error
	require.NoError(t, worker.Lookup("localhost", func(addrs []net.IP, err error) {
		deliveries++
		deliveredOn = appcore.CurrentThreadID()
		lookupErr = err
		if err == nil {
			assert.NotEmpty(t, addrs)
		}
		core.Quit()
	}))

	require.NoError(t, core.Exec(execCtx(t)))

	require.Equal(t, 1, deliveries, "completion must be delivered exactly once")
	assert.Equal(t, core.ThreadID(), deliveredOn, "completion must run on the main goroutine")
	// Resolution of localhost may legitimately fail in odd environments;
	// delivery semantics are what is under test.
	_ = lookupErr

	require.NoError(t, worker.Close())
}

func TestResolverWorker_LookupAfterCloseFails(t *testing.T) {
	b := newApp(t)
	core := b.Core()

	worker, err := core.NewResolverWorker("closed")
	require.NoError(t, err)
	require.NoError(t, worker.Close())

	err = worker.Lookup("localhost", func([]net.IP, error) {})
	require.ErrorIs(t, err, pollapp.ErrResolverClosed)
}

func TestResolverWorker_CloseRacesDeliverAtMostOnce(t *testing.T) {
	b := newApp(t)
	core := b.Core()

	worker, err := core.NewResolverWorker("race")
	require.NoError(t, err)

	// Whether Close wins the race against the lookup, the completion runs
	// at most once, and Close must have no goroutines left in flight.
	var deliveries int
	require.NoError(t, worker.Lookup("localhost", func([]net.IP, error) {
		deliveries++
	}))
	require.NoError(t, worker.Close())

	core.RunTask(func() { core.Quit() })
	require.NoError(t, core.Exec(execCtx(t)))

	assert.LessOrEqual(t, deliveries, 1)
}
