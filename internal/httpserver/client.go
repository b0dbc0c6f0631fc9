package httpserver

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

// lingerTimeout bounds how long a closed client is drained after its response.
const lingerTimeout = 500 * time.Millisecond

type eventKind int

const (
	eventAccept eventKind = iota
	eventRead
)

// event is one readiness notification for the loop.
type event struct {
	kind eventKind

	// eventAccept
	conn net.Conn

	// eventRead
	slot       int
	generation uint64
	data       []byte

	err error
}

// slot is one entry of the client table.
type slot struct {
	occupied   bool
	conn       net.Conn
	addr       net.Addr
	generation uint64

	resume chan struct{}
	quit   chan struct{}
}

func (sl *slot) resumeRead() {
	select {
	case sl.resume <- struct{}{}:
	default:
	}
}

// occupy places conn in slot idx and starts its reader.
func (s *Server) occupy(idx int, conn net.Conn) {
	s.generation++
	sl := &s.slots[idx]
	*sl = slot{
		occupied:   true,
		conn:       conn,
		addr:       conn.RemoteAddr(),
		generation: s.generation,
		resume:     make(chan struct{}, 1),
		quit:       make(chan struct{}),
	}
	s.stats.active.Add(1)

	s.wg.Add(1)
	go s.readLoop(idx, sl.generation, conn, sl.resume, sl.quit)
}

// readLoop performs one read at a time into a fixed buffer and reports each
// result to the loop, then waits to be resumed.
func (s *Server) readLoop(idx int, gen uint64, conn net.Conn, resume, quit <-chan struct{}) {
	defer s.wg.Done()

	buf := make([]byte, s.cfg.BufferSize)
	for {
		n, err := conn.Read(buf)
		ev := event{kind: eventRead, slot: idx, generation: gen, err: err}
		if n > 0 {
			ev.data = append([]byte(nil), buf[:n]...)
		}

		select {
		case s.events <- ev:
		case <-quit:
			return
		}
		select {
		case <-resume:
		case <-quit:
			return
		}
	}
}

// removeClient closes the connection in slot idx and frees the slot. With
// linger set the write side is shut first and unread input drained in the
// background, so the client sees the response rather than a reset.
func (s *Server) removeClient(idx int, linger bool) {
	sl := &s.slots[idx]
	if !sl.occupied {
		return
	}
	close(sl.quit)
	conn := sl.conn
	*sl = slot{}
	s.stats.active.Add(-1)

	if linger {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			lingerClose(conn)
		}()
		return
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug().Err(err).Int("slot", idx).Msg("closing client")
	}
}

type closeWriter interface {
	CloseWrite() error
}

func lingerClose(conn net.Conn) {
	defer conn.Close()
	cw, ok := conn.(closeWriter)
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.Copy(io.Discard, conn)
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF)
}

func isInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

func isWouldBlock(err error) bool {
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
