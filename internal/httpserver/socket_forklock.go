//go:build unix && !(linux || freebsd || netbsd || openbsd || dragonfly)

package httpserver

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// newSocket holds ForkLock so no child is forked between socket and
// CloseOnExec on platforms without SOCK_CLOEXEC.
func newSocket() (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}
