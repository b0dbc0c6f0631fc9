package socks

import (
	"net"

	"tinyhttpd/internal/xorrw"
)

// listener XOR-wraps every accepted client connection.
type listener struct {
	net.Listener
	key string
}

func newListener(ln net.Listener, key string) net.Listener {
	if key == "" {
		return ln
	}
	return &listener{Listener: ln, key: key}
}

func (l *listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return xorrw.NewConn(conn, l.key), nil
}
