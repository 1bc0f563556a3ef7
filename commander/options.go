package commander

import (
	"time"

	"github.com/moffa90/go-ev3/protocol"
)

// Config holds the commander configuration.
type Config struct {
	// Logger is used for logging exchanges (optional)
	Logger Logger

	// TraceCallback receives every exchange that reached the transport (optional)
	TraceCallback TraceCallback

	// ReadTimeout bounds the wait for a reply
	ReadTimeout time.Duration

	// MaxReplySize is the size of the reply buffer
	MaxReplySize int

	// Catalog resolves rejection codes to messages
	Catalog *protocol.Catalog

	// CommandInterval is the minimum spacing between two requests.
	// Zero disables pacing.
	CommandInterval time.Duration

	// StrictCounter rejects replies whose counter does not echo the request
	StrictCounter bool

	// CounterStart is the counter of the first request
	CounterStart uint16
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ReadTimeout:  5 * time.Second,
		MaxReplySize: protocol.DefaultMaxReplySize,
		Catalog:      protocol.DefaultCatalog(),
	}
}

// Option is a functional option for configuring the Commander.
type Option func(*Config)

// WithLogger sets a logger for exchanges.
//
// Example:
//
//	cmd := commander.New(port, commander.WithLogger(logging.NewAdapter(log)))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTraceCallback sets a callback that observes every exchange.
//
// Example:
//
//	cmd := commander.New(port,
//	    commander.WithTraceCallback(func(t commander.Trace) {
//	        fmt.Printf("%s #%d took %s\n", t.Command, t.Counter, t.Elapsed)
//	    }),
//	)
func WithTraceCallback(callback TraceCallback) Option {
	return func(c *Config) {
		c.TraceCallback = callback
	}
}

// WithReadTimeout sets the reply timeout. Non-positive values are ignored.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithMaxReplySize sets the reply buffer size. Values smaller than a reply
// header are ignored.
func WithMaxReplySize(size int) Option {
	return func(c *Config) {
		if size >= protocol.MinReplySize {
			c.MaxReplySize = size
		}
	}
}

// WithCatalog replaces the catalog used to describe rejections.
func WithCatalog(catalog *protocol.Catalog) Option {
	return func(c *Config) {
		if catalog != nil {
			c.Catalog = catalog
		}
	}
}

// WithCommandInterval spaces requests at least interval apart.
// Bricks reached over Bluetooth drop frames when flooded.
//
// Example:
//
//	cmd := commander.New(port, commander.WithCommandInterval(20*time.Millisecond))
func WithCommandInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.CommandInterval = interval
		}
	}
}

// WithStrictCounter enables or disables reply counter checking.
// Default is false.
func WithStrictCounter(strict bool) Option {
	return func(c *Config) {
		c.StrictCounter = strict
	}
}

// WithCounterStart sets the counter of the first request.
func WithCounterStart(counter uint16) Option {
	return func(c *Config) {
		c.CounterStart = counter
	}
}
