package core

import "errors"

// Error definitions
var (
	// ErrWouldBlock is not a failure: the operation must be retried on the
	// next readiness event.
	ErrWouldBlock = errors.New("operation would block")

	ErrNotFound         = errors.New("page not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrOpen             = errors.New("cannot open page")
	ErrRequestTooLarge  = errors.New("request line exceeds buffer")

	// Fatal for the connection: closed without a further response
	ErrShortWrite   = errors.New("short write on response header")
	ErrIntegrity    = errors.New("body length does not match advertised size")
	ErrInvalidState = errors.New("slot is not ready to send")

	ErrNotListening = errors.New("engine is not listening")
	ErrListening    = errors.New("engine is already listening")
)
