// Package xorrw provides XOR obfuscation for byte streams.
package xorrw

import (
	"errors"
	"io"
	"net"
)

// ErrEmptyKey is returned when a stream is created without a key.
var ErrEmptyKey = errors.New("xorrw: empty key")

// keystream is a position in a repeating key.
type keystream struct {
	key []byte
	pos int
}

func (k *keystream) apply(dst, src []byte) {
	for i := range src {
		dst[i] = src[i] ^ k.key[k.pos]
		k.pos++
		if k.pos == len(k.key) {
			k.pos = 0
		}
	}
}

// ReadWriter applies the key to everything read from and written to the
// underlying stream. Reads and writes advance independent key positions, so a
// full-duplex peer using the same key decodes correctly.
type ReadWriter struct {
	rw io.ReadWriter
	r  keystream
	w  keystream
}

// NewReadWriter wraps rw with key.
func NewReadWriter(rw io.ReadWriter, key []byte) (*ReadWriter, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	k := append([]byte(nil), key...)
	return &ReadWriter{
		rw: rw,
		r:  keystream{key: k},
		w:  keystream{key: k},
	}, nil
}

// Read reads from the underlying stream and decodes in place.
func (x *ReadWriter) Read(p []byte) (int, error) {
	n, err := x.rw.Read(p)
	x.r.apply(p[:n], p[:n])
	return n, err
}

// Write encodes p into a scratch buffer and writes it. p is not modified.
func (x *ReadWriter) Write(p []byte) (int, error) {
	encoded := make([]byte, len(p))
	x.w.apply(encoded, p)
	return x.rw.Write(encoded)
}

// Close closes the underlying stream if it is an io.Closer.
func (x *ReadWriter) Close() error {
	if c, ok := x.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Conn is a net.Conn whose payload is XOR encoded.
type Conn struct {
	net.Conn
	rw *ReadWriter
}

// NewConn wraps conn. An empty key returns conn unchanged.
func NewConn(conn net.Conn, key string) net.Conn {
	if key == "" {
		return conn
	}
	rw, _ := NewReadWriter(conn, []byte(key))
	return &Conn{Conn: conn, rw: rw}
}

func (c *Conn) Read(b []byte) (int, error) {
	return c.rw.Read(b)
}

func (c *Conn) Write(b []byte) (int, error) {
	return c.rw.Write(b)
}

// CloseWrite half-closes the underlying connection when it supports it and
// closes it fully otherwise.
func (c *Conn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.Conn.Close()
}
