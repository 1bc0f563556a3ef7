// Package transport defines the byte-stream channel between host and brick.
//
// The protocol engine borrows a Transport for the length of one exchange and
// never opens or closes it. Concrete transports live in sub-packages
// (serial) or elsewhere (simulator).
package transport

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by ReadTimeout when no byte arrived in time
	ErrTimeout = errors.New("transport: read timed out")

	// ErrClosed is returned by operations on a closed transport
	ErrClosed = errors.New("transport: closed")
)

// Transport is an open, exclusively owned byte-stream connection to a brick.
//
// Implementations do not need to be safe for concurrent use; callers keep a
// single request in flight per Transport.
type Transport interface {
	// Write sends p and returns the number of bytes written.
	Write(p []byte) (int, error)

	// ReadTimeout reads one reply frame of up to len(p) bytes, blocking for
	// at most timeout. A frame cut short by the timeout is returned as is.
	// A transport may treat the timeout as advisory. Callers must treat
	// n <= 0 as a failure even when err is nil.
	ReadTimeout(p []byte, timeout time.Duration) (int, error)

	// LastError describes the most recent failure seen by the transport.
	LastError() string

	// Close releases the underlying handle.
	Close() error
}

// ErrorTracker records the last error of a transport. Embed it to
// implement LastError.
type ErrorTracker struct {
	last string
}

// Record stores err as the last error and returns it unchanged.
func (t *ErrorTracker) Record(err error) error {
	if err != nil {
		t.last = err.Error()
	}
	return err
}

// LastError returns the text of the last recorded error.
func (t *ErrorTracker) LastError() string {
	if t.last == "" {
		return "no error recorded"
	}
	return t.last
}
