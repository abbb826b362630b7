package http

import (
	"errors"
	"strconv"
)

// Status codes produced by the server
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusInternalServerError = 500
)

// Header names written by the server
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderConnection    = "Connection"
)

// ErrFormatting is returned when a response header does not fit its buffer
var ErrFormatting = errors.New("response header exceeds buffer size")

// StatusText returns the reason phrase for a status code
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return "Unknown Status"
	}
}

// AppendErrorResponse appends a complete error response (header and inline HTML
// body) to dst. Error responses always close the connection.
// limit bounds the total size; ErrFormatting is returned when it is exceeded.
func AppendErrorResponse(dst []byte, code int, limit int) ([]byte, error) {
	reason := StatusText(code)

	body := make([]byte, 0, 64)
	body = append(body, "<html><body><h1>"...)
	body = strconv.AppendInt(body, int64(code), 10)
	body = append(body, ' ')
	body = append(body, reason...)
	body = append(body, "</h1></body></html>"...)

	start := len(dst)
	dst = appendStatusLine(dst, code, reason)
	dst = appendHeaders(dst, int64(len(body)), "close")
	dst = append(dst, body...)

	if limit > 0 && len(dst)-start > limit {
		return dst[:start], ErrFormatting
	}
	return dst, nil
}

// AppendSuccessHeader appends a 200 header advertising size body bytes.
//
// The header says keep-alive even though the server closes after one
// response; clients must not rely on reusing the connection.
func AppendSuccessHeader(dst []byte, size int64, limit int) ([]byte, error) {
	start := len(dst)
	dst = appendStatusLine(dst, StatusOK, StatusText(StatusOK))
	dst = appendHeaders(dst, size, "keep-alive")

	if limit > 0 && len(dst)-start > limit {
		return dst[:start], ErrFormatting
	}
	return dst, nil
}

func appendStatusLine(dst []byte, code int, reason string) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(code), 10)
	dst = append(dst, ' ')
	dst = append(dst, reason...)
	return append(dst, "\r\n"...)
}

func appendHeaders(dst []byte, contentLength int64, connection string) []byte {
	dst = appendHeader(dst, HeaderContentType, "text/html")
	dst = append(dst, HeaderContentLength...)
	dst = append(dst, ": "...)
	dst = strconv.AppendInt(dst, contentLength, 10)
	dst = append(dst, "\r\n"...)
	dst = appendHeader(dst, HeaderConnection, connection)
	return append(dst, "\r\n"...)
}

func appendHeader(dst []byte, name, value string) []byte {
	dst = append(dst, name...)
	dst = append(dst, ": "...)
	dst = append(dst, value...)
	return append(dst, "\r\n"...)
}
