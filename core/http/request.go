package http

// Method is the request method as far as the server cares about it
type Method uint8

const (
	MethodUnsupported Method = iota
	MethodGet
)

// String returns a printable form of the method
func (m Method) String() string {
	if m == MethodGet {
		return "GET"
	}
	return "UNSUPPORTED"
}

// Limits caps the length of each request-line token
type Limits struct {
	MaxMethodLen  int
	MaxURILen     int
	MaxVersionLen int
}

// DefaultLimits mirrors the classic fixed-buffer sizes
var DefaultLimits = Limits{
	MaxMethodLen:  15,
	MaxURILen:     255,
	MaxVersionLen: 15,
}

// RequestLine is the parsed first line of a request
type RequestLine struct {
	Method Method

	// RawMethod keeps the (possibly truncated) method token for logging
	RawMethod string
	URI       string

	// Version is empty when the client sent only two tokens
	Version string
}
