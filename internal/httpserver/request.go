package httpserver

import "fmt"

// ParseRequestLine turns a request line such as "GET /hello HTTP/1.1" into a
// lookup key. The protocol token is not checked.
//
// Every failure wraps ErrNoRoute as well as the specific cause, so an
// unparseable line is handled exactly like a missing route.
func ParseRequestLine(line string) (RouteKey, error) {
	tokens := splitTokens(line, ' ')
	if len(tokens) < 2 {
		return RouteKey{}, fmt.Errorf("%w: %w: %q", ErrNoRoute, ErrMalformedRequestLine, line)
	}
	m, err := ParseMethod(tokens[0])
	if err != nil {
		return RouteKey{}, fmt.Errorf("%w: %w", ErrNoRoute, err)
	}
	return RouteKey{Method: m, Path: tokens[1]}, nil
}

// parseRequest runs the line extractor over raw and parses the first line.
func parseRequest(raw []byte) (RouteKey, error) {
	lines, err := ExtractLines(raw)
	if err != nil {
		return RouteKey{}, fmt.Errorf("%w: %w", ErrNoRoute, err)
	}
	if len(lines) == 0 {
		return RouteKey{}, fmt.Errorf("%w: %w: no request line", ErrNoRoute, ErrMalformedRequestLine)
	}
	return ParseRequestLine(lines[0])
}
