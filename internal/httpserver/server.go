// Package httpserver implements a small single-loop HTTP server: a bounded
// table of client slots, readiness-driven reads, request-line routing and
// minimal HTTP/1.1 response framing.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is the lifecycle stage of a Server.
type State int32

const (
	StateInit State = iota
	StateListening
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateListening:
		return "listening"
	case StateShuttingDown:
		return "shutting-down"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Server owns the listening socket, a fixed-size client slot table and one
// route table shared by every client.
//
// All slot bookkeeping, dispatching and handler calls happen on the goroutine
// running ListenAndServe. Helper goroutines only report readiness: one
// accepts connections and one per occupied slot reads from its client, and
// each of them waits for the loop before doing its next operation.
type Server struct {
	cfg Config
	log zerolog.Logger

	sock *boundSocket
	ln   net.Listener
	// addr is fixed in New; ln is only touched by the loop goroutine.
	addr net.Addr

	// routes is replaced wholesale on registration so the loop always reads an
	// immutable table; mu serializes writers.
	mu     sync.Mutex
	routes atomic.Pointer[RouteTable]

	slots      []slot
	generation uint64
	events     chan event
	acceptNext chan struct{}

	running   atomic.Bool
	state     atomic.Int32
	stop      chan struct{}
	stopOnce  sync.Once
	acceptErr error
	wg        sync.WaitGroup

	stats counters
}

// New allocates the server and, unless cfg.Listener is set, creates and binds
// its socket. On failure nothing is left open and no server is returned.
func New(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		log:        cfg.Logger.With().Str("component", "httpserver").Logger(),
		slots:      make([]slot, cfg.MaxClients),
		events:     make(chan event, 2*cfg.MaxClients+1),
		acceptNext: make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	s.routes.Store(NewRouteTable(DefaultRouteCapacity))

	if cfg.Listener != nil {
		s.ln = cfg.Listener
		s.addr = cfg.Listener.Addr()
	} else {
		sock, err := bindSocket(cfg.Mode.bindIP(), cfg.Port)
		if err != nil {
			return nil, fmt.Errorf("httpserver: init: %w", err)
		}
		s.sock = sock
		s.addr = sock.addr
	}
	s.state.Store(int32(StateInit))

	s.log.Debug().
		Str("addr", s.Addr().String()).
		Int("max_clients", cfg.MaxClients).
		Int("backlog", cfg.Backlog).
		Str("mode", cfg.Mode.String()).
		Msg("server initialized")
	return s, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// State reports the current lifecycle stage.
func (s *Server) State() State {
	return State(s.state.Load())
}

// AddRoute registers handler for method and path. A second registration of
// the same method and path is rejected.
func (s *Server) AddRoute(method Method, path string, handler Handler) error {
	key := RouteKey{Method: method, Path: path}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.routes.Load()
	if _, ok := cur.Find(key); ok {
		return fmt.Errorf("%w: %s", ErrRouteExists, key)
	}
	next := cur.Clone()
	if err := next.Add(Route{Method: method, Path: path, Handler: handler}); err != nil {
		return err
	}
	s.routes.Store(next)

	s.log.Debug().Str("route", key.String()).Int("routes", next.Len()).Msg("route added")
	return nil
}

// HandleFunc is AddRoute for a plain function.
func (s *Server) HandleFunc(method Method, path string, fn func() []byte) error {
	return s.AddRoute(method, path, HandlerFunc(fn))
}

// RemoveRoute unregisters the route for method and path.
func (s *Server) RemoveRoute(method Method, path string) error {
	return s.editRoutes(func(t *RouteTable) error {
		return t.Remove(RouteKey{Method: method, Path: path})
	})
}

// RemoveRouteAt unregisters the route at index i of Routes.
func (s *Server) RemoveRouteAt(i int) error {
	return s.editRoutes(func(t *RouteTable) error {
		return t.RemoveAt(i)
	})
}

func (s *Server) editRoutes(fn func(*RouteTable) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.routes.Load().Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.routes.Store(next)
	return nil
}

// Routes returns the registered routes in registration order.
func (s *Server) Routes() []Route {
	return s.routes.Load().Routes()
}

// ListenAndServe starts listening and runs the event loop until ctx is done
// or Shutdown is called. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateInit), int32(StateListening)) {
		return ErrServerClosed
	}

	if s.ln == nil {
		ln, err := s.sock.listen(s.cfg.Backlog)
		if err != nil {
			s.state.Store(int32(StateClosed))
			return fmt.Errorf("httpserver: %w", err)
		}
		s.ln = ln
	}

	s.running.Store(true)
	s.log.Info().Str("addr", s.ln.Addr().String()).Msg("listening")

	s.wg.Add(1)
	go s.acceptLoop()
	s.acceptNext <- struct{}{}

	for s.running.Load() {
		ready, ok := s.wait(ctx)
		if !ok {
			break
		}
		s.service(ready)
	}

	s.close()
	return s.acceptErr
}

// Shutdown asks the event loop to stop. It returns immediately; the loop
// finishes its current iteration, closes every client and the listener.
func (s *Server) Shutdown() {
	s.running.Store(false)
	s.stopOnce.Do(func() { close(s.stop) })
}

// Close releases a server that was never started, or stops a running one.
func (s *Server) Close() error {
	if s.state.CompareAndSwap(int32(StateInit), int32(StateClosed)) {
		s.Shutdown()
		if s.ln != nil {
			return s.ln.Close()
		}
		return s.sock.close()
	}
	s.Shutdown()
	return nil
}

// wait blocks until at least one event is ready, then collects every other
// event already pending. The accept event is ordered first, client events
// follow in slot order.
func (s *Server) wait(ctx context.Context) ([]event, bool) {
	var ready []event
	select {
	case ev := <-s.events:
		ready = append(ready, ev)
	case <-ctx.Done():
		s.log.Info().Msg("context done, shutting down")
		s.Shutdown()
		return nil, false
	case <-s.stop:
		return nil, false
	}

drain:
	for {
		select {
		case ev := <-s.events:
			ready = append(ready, ev)
		default:
			break drain
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.kind != b.kind {
			return a.kind == eventAccept
		}
		return a.slot < b.slot
	})
	return ready, true
}

func (s *Server) service(ready []event) {
	for _, ev := range ready {
		switch ev.kind {
		case eventAccept:
			s.handleAccept(ev)
		case eventRead:
			s.handleRead(ev)
		}
	}
}

func (s *Server) handleAccept(ev event) {
	if ev.err != nil {
		if errors.Is(ev.err, net.ErrClosed) {
			if s.running.Load() {
				s.log.Error().Err(ev.err).Msg("listener closed unexpectedly")
				s.acceptErr = fmt.Errorf("httpserver: accept: %w", ev.err)
				s.Shutdown()
			}
			return
		}
		s.log.Warn().Err(ev.err).Msg("accept failed, skipping")
		s.resumeAccept()
		return
	}

	idx := s.freeSlot()
	if idx < 0 {
		s.stats.dropped.Add(1)
		s.log.Warn().
			Str("peer", ev.conn.RemoteAddr().String()).
			Int("max_clients", len(s.slots)).
			Msg("client table full, dropping connection")
		ev.conn.Close()
		s.resumeAccept()
		return
	}

	s.occupy(idx, ev.conn)
	s.stats.accepted.Add(1)
	s.log.Debug().Int("slot", idx).Str("peer", ev.conn.RemoteAddr().String()).Msg("client connected")
	s.resumeAccept()
}

func (s *Server) resumeAccept() {
	select {
	case s.acceptNext <- struct{}{}:
	default:
	}
}

// acceptLoop accepts one connection each time the loop asks for it.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	var delay time.Duration
	for {
		select {
		case <-s.acceptNext:
		case <-s.stop:
			return
		}

		conn, err := s.ln.Accept()
		select {
		case s.events <- event{kind: eventAccept, conn: conn, err: err}:
		case <-s.stop:
			if conn != nil {
				conn.Close()
			}
			return
		}

		if err == nil || errors.Is(err, net.ErrClosed) {
			delay = 0
			continue
		}
		// back off on repeated failures such as EMFILE
		if delay == 0 {
			delay = 5 * time.Millisecond
		} else {
			delay *= 2
		}
		if delay > time.Second {
			delay = time.Second
		}
		select {
		case <-time.After(delay):
		case <-s.stop:
			return
		}
	}
}

func (s *Server) freeSlot() int {
	for i := range s.slots {
		if !s.slots[i].occupied {
			return i
		}
	}
	return -1
}

func (s *Server) handleRead(ev event) {
	sl := &s.slots[ev.slot]
	if !sl.occupied || sl.generation != ev.generation {
		// the slot was cleared, or reused, after this read was issued
		return
	}

	switch {
	case len(ev.data) > 0:
		s.dispatch(ev.slot, ev.data)
	case ev.err == nil:
		sl.resumeRead()
	case isDisconnect(ev.err):
		s.log.Debug().Int("slot", ev.slot).Str("peer", sl.addr.String()).Msg("client disconnected")
		s.removeClient(ev.slot, false)
	case isInterrupted(ev.err), isWouldBlock(ev.err):
		sl.resumeRead()
	default:
		s.stats.readErrors.Add(1)
		s.log.Warn().Err(ev.err).Int("slot", ev.slot).Str("peer", sl.addr.String()).Msg("read failed, removing client")
		s.removeClient(ev.slot, false)
	}
}

// dispatch answers the request read from slot idx and releases the client.
// Every response closes the connection.
func (s *Server) dispatch(idx int, data []byte) {
	sl := &s.slots[idx]
	start := time.Now()

	err := s.safeDispatch(idx, data, sl.conn)
	switch {
	case err == nil:
		s.stats.served.Add(1)
		s.log.Debug().Int("slot", idx).Dur("elapsed", time.Since(start)).Msg("request served")
	case errors.Is(err, ErrNoRoute):
		s.stats.notFound.Add(1)
		s.log.Debug().Err(err).Int("slot", idx).Msg("no route, answering 404")
		if _, werr := sl.conn.Write(notFoundResponse); werr != nil {
			s.log.Debug().Err(werr).Int("slot", idx).Msg("writing 404 failed")
		}
	case errors.Is(err, ErrHandlerPanic):
		s.stats.panics.Add(1)
		s.removeClient(idx, false)
		return
	default:
		s.stats.writeErrors.Add(1)
		s.log.Warn().Err(err).Int("slot", idx).Str("peer", sl.addr.String()).Msg("dispatch failed")
		s.removeClient(idx, false)
		return
	}
	s.removeClient(idx, true)
}

// safeDispatch runs Dispatch and turns a handler panic into ErrHandlerPanic
// so the loop keeps serving the other clients.
func (s *Server) safeDispatch(idx int, data []byte, w io.Writer) (err error) {
	defer func() {
		if x := recover(); x != nil {
			s.log.Error().
				Interface("panic", x).
				Int("slot", idx).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked, closing client")
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, x)
		}
	}()
	return Dispatch(data, w, s.routes.Load())
}

// close runs the SHUTTING_DOWN stage: every client, then the listener, then
// the helper goroutines.
func (s *Server) close() {
	s.state.Store(int32(StateShuttingDown))
	s.Shutdown()

	for i := range s.slots {
		if s.slots[i].occupied {
			s.removeClient(i, false)
		}
	}
	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Warn().Err(err).Msg("closing listener")
	}
	s.wg.Wait()

	// an accepted connection may still be queued
drain:
	for {
		select {
		case ev := <-s.events:
			if ev.kind == eventAccept && ev.conn != nil {
				ev.conn.Close()
			}
		default:
			break drain
		}
	}

	s.state.Store(int32(StateClosed))
	s.log.Info().Msg("server stopped")
}
