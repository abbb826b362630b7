package http

import (
	"bytes"
	"errors"
)

var (
	// ErrParse is returned when the request line has fewer than two tokens
	ErrParse = errors.New("malformed request line")
)

// ParseRequestLine extracts method, URI and version from the first line of buf.
//
// Only bytes up to the first '\n' are looked at; a terminating blank line is
// not required. Tokens longer than their limit are truncated, not rejected.
// Unsupported methods are tagged and left for the caller to refuse.
func ParseRequestLine(buf []byte, limits Limits) (RequestLine, error) {
	var line RequestLine

	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}

	var tokens [3][]byte
	n := 0
	for n < len(tokens) {
		buf = trimLeftSpace(buf)
		if len(buf) == 0 {
			break
		}
		end := indexSpace(buf)
		if end < 0 {
			end = len(buf)
		}
		tokens[n] = buf[:end]
		buf = buf[end:]
		n++
	}

	if n < 2 {
		return line, ErrParse
	}

	line.RawMethod = string(truncate(tokens[0], limits.MaxMethodLen))
	line.URI = string(truncate(tokens[1], limits.MaxURILen))
	if n == 3 {
		line.Version = string(truncate(tokens[2], limits.MaxVersionLen))
	}

	if line.RawMethod == "GET" {
		line.Method = MethodGet
	}

	return line, nil
}

// HasLineEnd reports whether buf already holds a complete request line
func HasLineEnd(buf []byte) bool {
	return bytes.IndexByte(buf, '\n') >= 0
}

func truncate(b []byte, max int) []byte {
	if max > 0 && len(b) > max {
		return b[:max]
	}
	return b
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}

func trimLeftSpace(b []byte) []byte {
	for len(b) > 0 && isSpace(b[0]) {
		b = b[1:]
	}
	return b
}

func indexSpace(b []byte) int {
	for i, c := range b {
		if isSpace(c) {
			return i
		}
	}
	return -1
}
