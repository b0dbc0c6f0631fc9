package httpserver

import "sync/atomic"

type counters struct {
	accepted    atomic.Uint64
	dropped     atomic.Uint64
	served      atomic.Uint64
	notFound    atomic.Uint64
	readErrors  atomic.Uint64
	writeErrors atomic.Uint64
	panics      atomic.Uint64
	active      atomic.Int64
}

// Stats is a point-in-time copy of the server counters.
type Stats struct {
	Accepted    uint64 `json:"accepted"`
	Dropped     uint64 `json:"dropped"`
	Served      uint64 `json:"served"`
	NotFound    uint64 `json:"not_found"`
	ReadErrors  uint64 `json:"read_errors"`
	WriteErrors uint64 `json:"write_errors"`
	Panics      uint64 `json:"panics"`
	Active      int64  `json:"active"`
}

// Stats may be called from any goroutine, including a handler.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted:    s.stats.accepted.Load(),
		Dropped:     s.stats.dropped.Load(),
		Served:      s.stats.served.Load(),
		NotFound:    s.stats.notFound.Load(),
		ReadErrors:  s.stats.readErrors.Load(),
		WriteErrors: s.stats.writeErrors.Load(),
		Panics:      s.stats.panics.Load(),
		Active:      s.stats.active.Load(),
	}
}
