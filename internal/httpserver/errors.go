package httpserver

import "errors"

var (
	// ErrEmptyBuffer is returned by ExtractLines for a nil or zero-length buffer.
	ErrEmptyBuffer = errors.New("httpserver: empty buffer")

	// ErrNoRoute reports a dispatch miss. Parse failures wrap it too, so callers
	// only need errors.Is(err, ErrNoRoute) to decide on a 404.
	ErrNoRoute = errors.New("httpserver: no matching route")

	ErrMalformedRequestLine = errors.New("httpserver: malformed request line")
	ErrUnknownMethod        = errors.New("httpserver: unknown method")

	ErrRouteNotFound = errors.New("httpserver: route not found")
	ErrRouteExists   = errors.New("httpserver: route already registered")
	ErrInvalidRoute  = errors.New("httpserver: invalid route")

	// ErrWriteFailed wraps transport errors hit while writing a response.
	ErrWriteFailed = errors.New("httpserver: response write failed")

	// ErrHandlerPanic wraps the value recovered from a panicking handler.
	ErrHandlerPanic = errors.New("httpserver: handler panicked")

	// ErrServerClosed is returned by ListenAndServe on a server that was
	// already started or closed.
	ErrServerClosed = errors.New("httpserver: server closed")
)
