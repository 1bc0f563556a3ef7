package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is matched by EncodingError
	ErrPayloadTooLarge = errors.New("protocol: payload too large for length prefix")

	// ErrTruncated is matched by DecodeError
	ErrTruncated = errors.New("protocol: truncated packet")

	// ErrInvalidPath is returned by path builders for paths the firmware cannot take
	ErrInvalidPath = errors.New("protocol: invalid path")
)

// EncodingError reports a payload whose length cannot be represented
// in the length prefix. No buffer is allocated when it is returned.
type EncodingError struct {
	// Command is the command being encoded
	Command Command

	// PayloadLen is the rejected payload length
	PayloadLen int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: payload of %d bytes exceeds maximum %d",
		e.Command, e.PayloadLen, MaxPayloadSize)
}

// Unwrap lets errors.Is match ErrPayloadTooLarge.
func (e *EncodingError) Unwrap() error {
	return ErrPayloadTooLarge
}

// DecodeError reports a packet shorter than its header or its declared length.
type DecodeError struct {
	// Got is the number of bytes available
	Got int

	// Want is the minimum number of bytes required
	Want int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("packet too short: got %d bytes, minimum is %d", e.Got, e.Want)
}

// Unwrap lets errors.Is match ErrTruncated.
func (e *DecodeError) Unwrap() error {
	return ErrTruncated
}

// IsDecodeError returns true if the error is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
