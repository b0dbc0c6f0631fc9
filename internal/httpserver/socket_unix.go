//go:build unix

package httpserver

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// boundSocket is an IPv4 stream socket that has been bound but is not yet
// listening. It is the server's state between INIT and LISTENING.
type boundSocket struct {
	fd   int
	addr *net.TCPAddr
}

// bindSocket creates the socket, enables SO_REUSEADDR and binds it. On any
// failure the descriptor is closed before returning.
func bindSocket(ip net.IP, port int) (*boundSocket, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("bind: %s is not an IPv4 address", ip)
	}

	fd, err := newSocket()
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip4)
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}

	// port 0 asks the kernel to pick one
	local, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("getsockname", err)
	}
	addr := &net.TCPAddr{IP: ip4, Port: port}
	if in4, ok := local.(*unix.SockaddrInet4); ok {
		addr = &net.TCPAddr{IP: net.IP(in4.Addr[:]).To4(), Port: in4.Port}
	}

	return &boundSocket{fd: fd, addr: addr}, nil
}

// listen marks the socket passive with the given backlog and hands it to the
// runtime poller. The bound descriptor is consumed either way.
func (b *boundSocket) listen(backlog int) (net.Listener, error) {
	if b.fd < 0 {
		return nil, fmt.Errorf("listen: socket already released")
	}
	if err := unix.Listen(b.fd, backlog); err != nil {
		b.close()
		return nil, os.NewSyscallError("listen", err)
	}

	f := os.NewFile(uintptr(b.fd), "tinyhttpd-listener")
	b.fd = -1
	// FileListener dups the descriptor, so the original is closed with f.
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return ln, nil
}

func (b *boundSocket) close() error {
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}
