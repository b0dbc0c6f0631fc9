package httpserver

// initialLineCapacity mirrors the route table's starting size; both grow by doubling.
const initialLineCapacity = 4

// ExtractLines splits buf into header lines at CRLF boundaries.
//
// Scanning stops at the first empty line (the end of the header block) and
// whatever follows it is discarded. If the buffer ends without a terminator the
// remaining bytes are returned as one trailing line, which lets a request that
// fits in a single read be parsed even when it was cut short. Fragmented
// requests are not reassembled.
func ExtractLines(buf []byte) ([]string, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}

	lines := make([]string, 0, initialLineCapacity)
	start := 0
	headerEnd := false
	for i := 0; i < len(buf)-1; i++ {
		if buf[i] != '\r' || buf[i+1] != '\n' {
			continue
		}
		if i == start {
			headerEnd = true
			break
		}
		lines = appendGrow(lines, string(buf[start:i]))
		i++
		start = i + 1
	}

	if !headerEnd && start < len(buf) {
		lines = appendGrow(lines, string(buf[start:]))
	}
	return lines, nil
}

// splitTokens splits s on every occurrence of sep. Consecutive separators
// produce empty tokens.
func splitTokens(s string, sep byte) []string {
	tokens := make([]string, 0, initialLineCapacity)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			tokens = appendGrow(tokens, s[start:i])
			start = i + 1
		}
	}
	return appendGrow(tokens, s[start:])
}

// appendGrow appends v, doubling the capacity of s when it is full.
func appendGrow(s []string, v string) []string {
	if len(s) == cap(s) {
		grown := make([]string, len(s), max(2*cap(s), initialLineCapacity))
		copy(grown, s)
		s = grown
	}
	return append(s, v)
}
