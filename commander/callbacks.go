package commander

import (
	"time"

	"github.com/moffa90/go-ev3/protocol"
)

// Trace describes one request/reply exchange.
// Passed to TraceCallback after the exchange finished, whatever its outcome.
type Trace struct {
	// Command is the system command that was sent
	Command protocol.Command

	// Counter is the message counter of the request
	Counter uint16

	// Request holds the encoded request
	Request []byte

	// Reply holds the bytes actually read, nil if the read failed
	Reply []byte

	// Rejected is set when the brick answered with a VM error
	Rejected bool

	// Elapsed covers the write and the read
	Elapsed time.Duration

	// Err is the exchange error, nil on success and on rejection
	Err error
}

// TraceCallback is called once per exchange.
// Implementations should return quickly; the next exchange waits for it.
type TraceCallback func(Trace)

// Logger is an optional logging interface that can be provided to the commander.
// This allows integration with any logging framework; logging.Adapter
// implements it over zerolog.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
