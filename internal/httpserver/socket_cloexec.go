//go:build linux || freebsd || netbsd || openbsd || dragonfly

package httpserver

import "golang.org/x/sys/unix"

// newSocket opens the descriptor close-on-exec atomically.
func newSocket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}
