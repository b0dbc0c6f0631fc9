// Package tunnel carries HTTP connections as yamux streams over a single TCP
// connection per peer, optionally XOR obfuscated.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/yamux"
	"github.com/rs/zerolog"

	"tinyhttpd/internal/xorrw"
)

// NewConfig returns the yamux session settings used on both ends.
func NewConfig(log zerolog.Logger) *yamux.Config {
	config := yamux.DefaultConfig()
	config.EnableKeepAlive = true
	config.KeepAliveInterval = 30 * time.Second
	config.ConnectionWriteTimeout = 10 * time.Second
	config.LogOutput = log
	return config
}

// Listener accepts tunnel peers on a TCP listener and hands out every stream
// they open as a net.Conn. It can be passed as httpserver.Config.Listener.
type Listener struct {
	ln     net.Listener
	key    string
	config *yamux.Config
	log    zerolog.Logger

	streams chan net.Conn
	done    chan struct{}
	once    sync.Once

	mu       sync.Mutex
	sessions map[*yamux.Session]struct{}
	wg       sync.WaitGroup
}

// Listen starts accepting tunnel peers on ln. An empty key disables XOR.
func Listen(ln net.Listener, key string, log zerolog.Logger) *Listener {
	log = log.With().Str("component", "tunnel").Logger()
	l := &Listener{
		ln:       ln,
		key:      key,
		config:   NewConfig(log),
		log:      log,
		streams:  make(chan net.Conn),
		done:     make(chan struct{}),
		sessions: make(map[*yamux.Session]struct{}),
	}
	l.wg.Add(1)
	go l.acceptPeers()
	return l
}

// Accept returns the next stream opened by any peer.
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.streams:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

// Close stops accepting peers and tears down every session.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		err = l.ln.Close()

		l.mu.Lock()
		for session := range l.sessions {
			session.Close()
		}
		l.mu.Unlock()

		l.wg.Wait()
	})
	return err
}

// Addr is the TCP address peers connect to.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Sessions reports the number of connected peers.
func (l *Listener) Sessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

func (l *Listener) acceptPeers() {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				l.log.Error().Err(err).Msg("tunnel listener closed")
				go l.Close()
				return
			}
			l.log.Warn().Err(err).Msg("accepting tunnel peer")
			continue
		}

		session, err := yamux.Server(xorrw.NewConn(conn, l.key), l.config)
		if err != nil {
			l.log.Error().Err(err).Msg("creating yamux session")
			conn.Close()
			continue
		}
		if !l.track(session) {
			session.Close()
			return
		}
		l.log.Info().Str("peer", conn.RemoteAddr().String()).Msg("tunnel session started")

		l.wg.Add(1)
		go l.serveSession(session)
	}
}

func (l *Listener) track(session *yamux.Session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.done:
		return false
	default:
	}
	l.sessions[session] = struct{}{}
	return true
}

func (l *Listener) serveSession(session *yamux.Session) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		delete(l.sessions, session)
		l.mu.Unlock()
		session.Close()
		l.log.Info().Str("peer", session.RemoteAddr().String()).Msg("tunnel session closed")
	}()

	for {
		stream, err := session.Accept()
		if err != nil {
			if err != io.EOF && !session.IsClosed() {
				l.log.Warn().Err(err).Msg("accepting yamux stream")
			}
			return
		}
		select {
		case l.streams <- stream:
		case <-l.done:
			stream.Close()
			return
		}
	}
}

// Dial connects to a tunnel listener and returns the client session. Each
// session.Open yields a connection to the remote HTTP server.
func Dial(ctx context.Context, addr, key string, log zerolog.Logger) (*yamux.Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tunnel: dial %s: %w", addr, err)
	}
	session, err := yamux.Client(xorrw.NewConn(conn, key), NewConfig(log))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("tunnel: client session: %w", err)
	}
	return session, nil
}
