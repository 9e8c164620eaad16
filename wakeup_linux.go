//go:build linux

package appcore

import (
	"golang.org/x/sys/unix"
)

// NewWakeFd creates the cross-thread wakeup primitive (Linux: an eventfd).
// The same descriptor is returned as both read and write ends. Both ends
// are non-blocking and close-on-exec. Backends may use this for their own
// wakeup needs in addition to the runtime's wakeup channel.
func NewWakeFd() (readFd, writeFd int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return 0, 0, err
	}
	return fd, fd, nil
}
