package core

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/searchktools/pageserver/core/http"
)

// State is the progress of a slot through one request/response exchange
type State uint8

const (
	// StateReading accumulates the request; no response has been prepared
	StateReading State = iota
	// StateHeaderPending has a prepared header that has not been written
	StateHeaderPending
	// StateBodyPending streams the page file after the header
	StateBodyPending
	// StateDone has sent the whole response; the slot must be released
	StateDone
	// StateFailed cannot produce a response; the slot must be released
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateHeaderPending:
		return "header-pending"
	case StateBodyPending:
		return "body-pending"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Slot tracks one client connection from accept to release.
// Slots are owned by the pool; buffers are allocated once and reused.
type Slot struct {
	sock   Socket
	remote *net.TCPAddr

	reqBuf []byte
	line   http.RequestLine
	path   string

	header []byte
	file   io.ReadSeekCloser
	chunk  []byte

	fileSize  int64
	bytesSent int64

	state  State
	status int

	started    time.Time
	lastActive time.Time
}

// newSlot allocates a slot with fixed-size request, header and chunk buffers
func newSlot(requestSize, headerSize, chunkSize int) *Slot {
	return &Slot{
		reqBuf: make([]byte, 0, requestSize),
		header: make([]byte, 0, headerSize),
		chunk:  make([]byte, chunkSize),
	}
}

// Reset clears per-connection state, keeping the buffers
func (s *Slot) Reset() {
	s.remote = nil
	s.reqBuf = s.reqBuf[:0]
	s.line = http.RequestLine{}
	s.path = ""
	s.header = s.header[:0]
	s.fileSize = 0
	s.bytesSent = 0
	s.state = StateReading
	s.status = http.StatusOK
	s.started = time.Time{}
	s.lastActive = time.Time{}
}

// Close closes the socket and any open file. Each is closed at most once.
func (s *Slot) Close() error {
	var sockErr, fileErr error
	if s.sock != nil {
		sockErr = s.sock.Close()
		s.sock = nil
	}
	if s.file != nil {
		fileErr = s.file.Close()
		s.file = nil
	}
	return errors.Join(sockErr, fileErr)
}

// attach binds a freshly accepted connection to the slot
func (s *Slot) attach(sock Socket, remote *net.TCPAddr, now time.Time) {
	s.sock = sock
	s.remote = remote
	s.started = now
	s.lastActive = now
}

// fd returns the socket descriptor, or -1 when no socket is attached
func (s *Slot) fd() int {
	if s.sock == nil {
		return -1
	}
	return s.sock.Fd()
}

// prepared reports whether a response has been built for this slot
func (s *Slot) prepared() bool {
	return s.state == StateHeaderPending || s.state == StateBodyPending
}

// Status returns the response status of the slot
func (s *Slot) Status() int { return s.status }

// State returns the current send state
func (s *Slot) State() State { return s.state }

// BytesSent returns the number of body bytes accepted by the socket
func (s *Slot) BytesSent() int64 { return s.bytesSent }

// FileSize returns the advertised body length of a 200 response
func (s *Slot) FileSize() int64 { return s.fileSize }
