package httpserver

import (
	"strconv"
)

const (
	statusLineOK       = "HTTP/1.1 200 OK\r\n"
	statusLineNotFound = "HTTP/1.1 404 Not Found\r\n"
)

// notFoundResponse is written by the multiplexer after a dispatch miss.
var notFoundResponse = []byte(statusLineNotFound + "Content-Length: 0\r\nConnection: close\r\n\r\n")

// frameResponse wraps body in a minimal HTTP/1.1 200 response. Every response
// asks the client to close the connection.
func frameResponse(body []byte) []byte {
	n := strconv.Itoa(len(body))
	buf := make([]byte, 0, len(statusLineOK)+len(n)+64+len(body))
	buf = append(buf, statusLineOK...)
	buf = append(buf, "Content-Length: "...)
	buf = append(buf, n...)
	buf = append(buf, "\r\nConnection: close\r\n\r\n"...)
	return append(buf, body...)
}

// NotFoundResponse returns a copy of the 404 response bytes.
func NotFoundResponse() []byte {
	return append([]byte(nil), notFoundResponse...)
}
