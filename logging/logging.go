// Package logging builds the zerolog loggers used by ev3cmd and adapts
// them to commander.Logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/moffa90/go-ev3/commander"
)

const (
	EnvLogLevel   = "EV3_LOG_LEVEL"
	EnvLogNoColor = "EV3_LOG_NOCOLOR"
	EnvLogJSON    = "EV3_LOG_JSON"
)

// Options controls the logger built by New.
type Options struct {
	// Level is a level name as accepted by ParseLevel; empty means info
	Level string

	// NoColor disables ANSI colors on console output
	NoColor bool

	// JSON writes one JSON object per line instead of console output
	JSON bool

	// Timestamp adds a time field to every event
	Timestamp bool
}

// New builds a logger writing to w. Environment variables override opts.
func New(w io.Writer, opts Options) zerolog.Logger {
	applyEnvOverrides(&opts)

	level, ok := ParseLevel(opts.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	out := w
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    opts.NoColor,
			TimeFormat: time.RFC3339,
		}
	}

	ctx := zerolog.New(out).Level(level).With().Str("app", "ev3cmd")
	if opts.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func applyEnvOverrides(opts *Options) {
	if raw := strings.TrimSpace(os.Getenv(EnvLogLevel)); raw != "" {
		if _, ok := ParseLevel(raw); ok {
			opts.Level = raw
		}
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		opts.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		opts.JSON = v
	}
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Adapter implements commander.Logger over a zerolog.Logger.
type Adapter struct {
	log zerolog.Logger
}

var _ commander.Logger = (*Adapter)(nil)

// NewAdapter wraps log.
func NewAdapter(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

func (a *Adapter) Debug(msg string, keysAndValues ...interface{}) {
	withFields(a.log.Debug(), keysAndValues).Msg(msg)
}

func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	withFields(a.log.Info(), keysAndValues).Msg(msg)
}

func (a *Adapter) Error(msg string, keysAndValues ...interface{}) {
	withFields(a.log.Error(), keysAndValues).Msg(msg)
}

// withFields attaches key-value pairs to e. A trailing key without a value
// is logged under "!BADKEY".
func withFields(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	if e == nil {
		return nil
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 >= len(kv) {
			e = e.Interface("!BADKEY", kv[i])
			break
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}
