//go:build darwin

package appcore

import (
	"syscall"
)

// NewWakeFd creates the cross-thread wakeup primitive (Darwin: a pipe).
// Returns the read end and the write end. Both ends are non-blocking and
// close-on-exec. Backends may use this for their own wakeup needs in
// addition to the runtime's wakeup channel.
func NewWakeFd() (readFd, writeFd int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	// On failure, close both pipe ends to avoid a descriptor leak.
	cleanup := func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}
