package commander

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-ev3/protocol"
)

var (
	// ErrEncoding matches exchanges that failed before reaching the transport
	ErrEncoding = errors.New("request encoding failed")

	// ErrTransportWrite matches exchanges whose request was not fully written
	ErrTransportWrite = errors.New("transport write failed")

	// ErrTransportRead matches exchanges whose reply was not received
	ErrTransportRead = errors.New("transport read failed")

	// ErrCounterMismatch is reported in strict mode when the reply counter
	// does not echo the request
	ErrCounterMismatch = errors.New("reply counter mismatch")

	// ErrNoData is reported when the transport returned no bytes and no error
	ErrNoData = errors.New("no data received")
)

// Stage is the step of an exchange at which it failed.
type Stage int

const (
	// StageEncode means the request could not be built
	StageEncode Stage = iota

	// StageWrite means the request was not fully written
	StageWrite

	// StageRead means no complete reply was received
	StageRead

	// StageDecode means the reply arrived but could not be matched to the request
	StageDecode

	// StageWait means the exchange was abandoned before the transport was used
	StageWait
)

var stageNames = [...]string{"encode", "write", "read", "decode", "wait"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

const (
	summaryEncode  = "unable to encode request"
	summaryWrite   = "unable to write request"
	summaryRead    = "unable to read reply"
	summaryCounter = "unable to correlate reply"
	summaryWait    = "cancelled before write"
)

// ExchangeError reports an exchange that did not produce a reply.
type ExchangeError struct {
	// Stage is the step at which the exchange failed
	Stage Stage

	// Command is the command being sent
	Command protocol.Command

	// Counter is the message counter of the request
	Counter uint16

	// Summary is the human-readable failure summary
	Summary string

	// TransportDetail is the transport's last error text, or the decode
	// failure for replies too short to carry a header
	TransportDetail string

	// Err is the underlying cause
	Err error
}

func (e *ExchangeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Command, e.Summary)
	if e.TransportDetail != "" {
		msg += ": " + e.TransportDetail
	}
	if e.Err != nil && e.Err.Error() != e.TransportDetail {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failed stage.
func (e *ExchangeError) Is(target error) bool {
	switch target {
	case ErrEncoding:
		return e.Stage == StageEncode
	case ErrTransportWrite:
		return e.Stage == StageWrite
	case ErrTransportRead:
		return e.Stage == StageRead
	}
	return false
}

// RejectedError indicates that the brick refused a command.
// Returned by the convenience operations; Execute reports rejections
// through Result instead.
type RejectedError struct {
	Command protocol.Command
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s was denied: %s (code %d)", e.Command, e.Message, e.Code)
}

// IsRejected reports whether err is, or wraps, a *RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
