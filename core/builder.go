package core

import (
	"fmt"
	"io"
	"os"

	"github.com/searchktools/pageserver/core/http"
)

// openFile is swapped in tests to simulate open failures
var openFile = func(name string) (io.ReadSeekCloser, error) {
	return os.Open(name)
}

// buildError prepares an error response with an inline HTML body.
// If even the error response cannot be formatted the slot is marked failed
// and the connection is dropped without a response.
func (s *Slot) buildError(status, limit int) error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.status = status
	s.fileSize = 0
	s.bytesSent = 0

	header, err := http.AppendErrorResponse(s.header[:0], status, limit)
	s.header = header
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("build %d response: %w", status, err)
	}

	s.state = StateHeaderPending
	return nil
}

// buildSuccess opens the page at path and prepares a 200 header for it.
// Missing or irregular files downgrade to 404, open and formatting failures
// to 500. The returned error explains a downgrade; the slot is still ready
// to send unless its state is StateFailed.
func (s *Slot) buildSuccess(path string, limit int) error {
	s.path = path

	info, err := os.Stat(path)
	if err != nil {
		return s.downgrade(http.StatusNotFound, limit, fmt.Errorf("%w: %w", ErrNotFound, err))
	}
	if !info.Mode().IsRegular() {
		return s.downgrade(http.StatusNotFound, limit, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path))
	}

	f, err := openFile(path)
	if err != nil {
		return s.downgrade(http.StatusInternalServerError, limit, fmt.Errorf("%w: %w", ErrOpen, err))
	}

	header, err := http.AppendSuccessHeader(s.header[:0], info.Size(), limit)
	if err != nil {
		f.Close()
		return s.downgrade(http.StatusInternalServerError, limit, err)
	}

	s.header = header
	s.file = f
	s.fileSize = info.Size()
	s.bytesSent = 0
	s.status = http.StatusOK
	s.state = StateHeaderPending
	return nil
}

func (s *Slot) downgrade(status, limit int, cause error) error {
	if err := s.buildError(status, limit); err != nil {
		return fmt.Errorf("%w (while handling: %w)", err, cause)
	}
	return cause
}
