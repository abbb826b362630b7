package core

import (
	"errors"
	"fmt"
	"io"
)

// Result tells the event loop what to do after a send attempt
type Result uint8

const (
	// ResultRetry means wait for the next write-readiness and call send again
	ResultRetry Result = iota
	// ResultDone means the response is complete and the slot can be released
	ResultDone
)

// send pushes as much of the prepared response as the socket accepts.
//
// The header goes out in one write; a short header write is fatal. The body
// is streamed one chunk per call. If the socket blocks part way through a
// chunk the file offset is moved back by the unwritten remainder, so the
// next call re-reads exactly those bytes.
func (s *Slot) send() (Result, error) {
	res, err := s.advance()
	if err != nil {
		s.state = StateFailed
	}
	return res, err
}

func (s *Slot) advance() (Result, error) {
	switch s.state {
	case StateHeaderPending:
		n, err := s.sock.Write(s.header)
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return ResultRetry, nil
			}
			return ResultDone, fmt.Errorf("write header: %w", err)
		}
		if n < len(s.header) {
			return ResultDone, fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(s.header))
		}

		if s.file == nil {
			s.state = StateDone
			return ResultDone, nil
		}
		s.state = StateBodyPending
		return s.sendChunk()

	case StateBodyPending:
		return s.sendChunk()

	case StateDone:
		return ResultDone, nil
	}

	return ResultDone, fmt.Errorf("%w: %s", ErrInvalidState, s.state)
}

func (s *Slot) sendChunk() (Result, error) {
	n, err := s.file.Read(s.chunk)
	if n == 0 {
		switch {
		case err == nil:
			return ResultRetry, nil
		case errors.Is(err, io.EOF):
			return s.finishBody()
		default:
			return ResultDone, fmt.Errorf("read file: %w", err)
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return ResultDone, fmt.Errorf("read file: %w", err)
	}

	if s.bytesSent+int64(n) > s.fileSize {
		return ResultDone, fmt.Errorf("%w: file grew past %d bytes", ErrIntegrity, s.fileSize)
	}

	written := 0
	for written < n {
		w, err := s.sock.Write(s.chunk[written:n])
		if w > 0 {
			written += w
			s.bytesSent += int64(w)
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				if _, serr := s.file.Seek(int64(written-n), io.SeekCurrent); serr != nil {
					return ResultDone, fmt.Errorf("rewind file: %w", serr)
				}
				return ResultRetry, nil
			}
			return ResultDone, fmt.Errorf("write body: %w", err)
		}
		if w == 0 {
			return ResultDone, fmt.Errorf("write body: %w", io.ErrShortWrite)
		}
	}

	if s.bytesSent == s.fileSize {
		return s.confirmEOF()
	}
	return ResultRetry, nil
}

// confirmEOF checks that the file really ends where the header said it would
func (s *Slot) confirmEOF() (Result, error) {
	n, err := s.file.Read(s.chunk[:1])
	if n > 0 {
		return ResultDone, fmt.Errorf("%w: file grew past %d bytes", ErrIntegrity, s.fileSize)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return ResultDone, fmt.Errorf("read file: %w", err)
	}
	return s.finishBody()
}

func (s *Slot) finishBody() (Result, error) {
	if s.bytesSent != s.fileSize {
		return ResultDone, fmt.Errorf("%w: sent %d of %d bytes", ErrIntegrity, s.bytesSent, s.fileSize)
	}
	s.state = StateDone
	return ResultDone, nil
}
