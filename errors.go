package appcore

import "errors"

// Standard errors.
var (
	// ErrAppClosed is returned when operations are attempted on an App whose
	// teardown has already completed.
	ErrAppClosed = errors.New("appcore: application is closed")

	// ErrWatchAlreadyRegistered is returned by a backend when AddWatch is
	// called for a watch whose file descriptor is already registered.
	ErrWatchAlreadyRegistered = errors.New("appcore: watch already registered")

	// ErrWatchNotRegistered is returned by a backend when DelWatch is called
	// for a watch that was never registered (or already removed).
	ErrWatchNotRegistered = errors.New("appcore: watch not registered")

	// ErrTimerAlreadyRegistered is returned by a backend when AddTimer is
	// called for a timer that is already registered.
	ErrTimerAlreadyRegistered = errors.New("appcore: timer already registered")

	// ErrTimerNotRegistered is returned by a backend when DelTimer is called
	// for a timer that was never registered (or already removed).
	ErrTimerNotRegistered = errors.New("appcore: timer not registered")

	// ErrBackendStopped is returned by a backend when a registration or
	// lookup is attempted after its wait loop has been told to stop.
	ErrBackendStopped = errors.New("appcore: backend stopped")
)
