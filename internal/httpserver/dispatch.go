package httpserver

import (
	"fmt"
	"io"
)

// Dispatch answers one raw request read from a client.
//
// The request line is parsed, looked up in routes and, on a hit, the matched
// handler's body is framed and written to w with a single Write. On a miss
// (bad request line, unknown method or no route) nothing is written and the
// returned error wraps ErrNoRoute; writing the 404 is left to the caller.
// A nil routes table misses every request.
// The handler runs synchronously on the caller's goroutine.
func Dispatch(raw []byte, w io.Writer, routes *RouteTable) error {
	key, err := parseRequest(raw)
	if err != nil {
		return err
	}

	if routes == nil {
		return fmt.Errorf("%w: %s", ErrNoRoute, key)
	}
	route, ok := routes.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRoute, key)
	}

	resp := frameResponse(route.Handler.Produce())
	if _, err := w.Write(resp); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, key, err)
	}
	return nil
}
