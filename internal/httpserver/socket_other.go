//go:build !unix

package httpserver

import (
	"fmt"
	"net"
)

// boundSocket only records the address on platforms without raw socket
// access; the listen backlog is left to the runtime.
type boundSocket struct {
	addr     *net.TCPAddr
	released bool
}

func bindSocket(ip net.IP, port int) (*boundSocket, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("bind: %s is not an IPv4 address", ip)
	}
	return &boundSocket{addr: &net.TCPAddr{IP: ip4, Port: port}}, nil
}

func (b *boundSocket) listen(backlog int) (net.Listener, error) {
	if b.released {
		return nil, fmt.Errorf("listen: socket already released")
	}
	b.released = true
	ln, err := net.Listen("tcp4", b.addr.String())
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return ln, nil
}

func (b *boundSocket) close() error {
	b.released = true
	return nil
}
