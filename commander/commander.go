package commander

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/moffa90/go-ev3/protocol"
	"github.com/moffa90/go-ev3/transport"
)

// Commander sends system commands to a brick and interprets its replies.
// It borrows the transport; opening and closing it is up to the caller.
//
// Commander is safe for concurrent use, but exchanges are serialised: one
// request is in flight at a time.
type Commander struct {
	device  transport.Transport
	config  Config
	limiter *rate.Limiter
	counter atomic.Uint32
	mu      sync.Mutex
}

// Result is the outcome of an exchange that received a reply.
type Result struct {
	// Command is the command that was sent
	Command protocol.Command

	// Counter is the message counter of the request
	Counter uint16

	// Header is the decoded reply header
	Header protocol.ReplyHeader

	// Payload holds the result bytes after the status byte
	Payload []byte

	// BytesRead is the number of bytes the transport returned
	BytesRead int

	// Rejected is set when the reply type reports a VM error
	Rejected bool

	// Code and Message describe the rejection
	Code    int
	Message string
}

// Status returns the firmware status byte of the reply.
func (r *Result) Status() byte {
	return r.Header.Status
}

// Err returns a *RejectedError for a rejected result and nil otherwise.
func (r *Result) Err() error {
	if !r.Rejected {
		return nil
	}
	return &RejectedError{Command: r.Command, Code: r.Code, Message: r.Message}
}

// New creates a Commander that talks over device.
//
// Example:
//
//	port, err := serial.Open(serial.Config{Device: "/dev/rfcomm0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	cmd := commander.New(port, commander.WithReadTimeout(2*time.Second))
func New(device transport.Transport, opts ...Option) *Commander {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Commander{
		device: device,
		config: cfg,
	}
	if cfg.CommandInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.CommandInterval), 1)
	}
	c.counter.Store(uint32(cfg.CounterStart))

	return c
}

// nextCounter returns the counter for a new request; it wraps at 0xFFFF.
func (c *Commander) nextCounter() uint16 {
	return uint16(c.counter.Add(1) - 1)
}

// Execute sends cmd with payload and waits for the reply.
//
// A reply whose type reports a VM error is not an error: Execute returns a
// Result with Rejected set and the code resolved through the catalog.
// The error return is an *ExchangeError when no usable reply arrived.
//
// ctx only governs the wait before the request is written; an exchange
// abandoned there fails with StageWait and wraps the context error. Once
// the write starts, the read timeout bounds the exchange.
func (c *Commander) Execute(ctx context.Context, cmd protocol.Command, payload []byte) (*Result, error) {
	counter := c.nextCounter()

	request, err := protocol.BuildRequest(counter, cmd, payload)
	if err != nil {
		c.logError("encode failed", "command", cmd.String(), "payload_len", len(payload), "error", err)
		return nil, &ExchangeError{
			Stage:   StageEncode,
			Command: cmd,
			Counter: counter,
			Summary: summaryEncode,
			Err:     err,
		}
	}

	ex := c.exchange(ctx, cmd, counter, request)

	if ex.sent && c.config.TraceCallback != nil {
		c.config.TraceCallback(Trace{
			Command:  cmd,
			Counter:  counter,
			Request:  request,
			Reply:    ex.reply,
			Rejected: ex.result != nil && ex.result.Rejected,
			Elapsed:  ex.elapsed,
			Err:      ex.err,
		})
	}

	return ex.result, ex.err
}

type exchangeOutcome struct {
	result  *Result
	reply   []byte
	elapsed time.Duration
	sent    bool
	err     error
}

// exchange performs the write/read pair under the commander lock.
func (c *Commander) exchange(ctx context.Context, cmd protocol.Command, counter uint16, request []byte) exchangeOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		c.logDebug("exchange cancelled before write", "command", cmd.String(), "error", err)
		return exchangeOutcome{err: &ExchangeError{
			Stage:   StageWait,
			Command: cmd,
			Counter: counter,
			Summary: summaryWait,
			Err:     err,
		}}
	}

	start := time.Now()
	out := exchangeOutcome{sent: true}
	out.result, out.reply, out.err = c.roundTrip(cmd, counter, request)
	out.elapsed = time.Since(start)
	return out
}

// wait applies command pacing and honours cancellation before the write.
func (c *Commander) wait(ctx context.Context) error {
	if c.limiter != nil {
		return c.limiter.Wait(ctx)
	}
	return ctx.Err()
}

func (c *Commander) roundTrip(cmd protocol.Command, counter uint16, request []byte) (*Result, []byte, error) {
	c.logDebug("sending request",
		"command", cmd.String(),
		"counter", counter,
		"bytes", len(request),
	)

	n, err := c.device.Write(request)
	if err != nil || n != len(request) {
		if err == nil {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(request))
		}
		detail := c.device.LastError()
		c.logError(summaryWrite, "command", cmd.String(), "written", n, "detail", detail, "error", err)
		return nil, nil, &ExchangeError{
			Stage:           StageWrite,
			Command:         cmd,
			Counter:         counter,
			Summary:         summaryWrite,
			TransportDetail: detail,
			Err:             err,
		}
	}

	buf := make([]byte, c.config.MaxReplySize)
	n, err = c.device.ReadTimeout(buf, c.config.ReadTimeout)
	if err != nil || n <= 0 {
		if err == nil {
			err = ErrNoData
		}
		detail := c.device.LastError()
		c.logError(summaryRead, "command", cmd.String(), "detail", detail, "error", err)
		return nil, nil, &ExchangeError{
			Stage:           StageRead,
			Command:         cmd,
			Counter:         counter,
			Summary:         summaryRead,
			TransportDetail: detail,
			Err:             err,
		}
	}
	if n > len(buf) {
		n = len(buf)
	}
	reply := buf[:n]

	h, err := protocol.DecodeReplyHeader(reply)
	if err != nil {
		c.logError(summaryRead, "command", cmd.String(), "bytes_read", n, "error", err)
		return nil, reply, &ExchangeError{
			Stage:           StageRead,
			Command:         cmd,
			Counter:         counter,
			Summary:         summaryRead,
			TransportDetail: err.Error(),
			Err:             err,
		}
	}

	// A frame larger than the buffer fills it and is kept clipped; a frame
	// that stops short of both is incomplete.
	declared := h.FrameSize()
	if n < declared && n < len(buf) {
		err := &protocol.DecodeError{Got: n, Want: declared}
		c.logError(summaryRead, "command", cmd.String(), "bytes_read", n, "declared", declared, "error", err)
		return nil, reply, &ExchangeError{
			Stage:           StageRead,
			Command:         cmd,
			Counter:         counter,
			Summary:         summaryRead,
			TransportDetail: err.Error(),
			Err:             err,
		}
	}
	if n != declared {
		c.logDebug("reply length differs from declared length",
			"command", cmd.String(),
			"bytes_read", n,
			"declared", declared,
		)
	}

	if c.config.StrictCounter && h.Counter != counter {
		err := fmt.Errorf("%w: sent %d, got %d", ErrCounterMismatch, counter, h.Counter)
		c.logError(summaryCounter, "command", cmd.String(), "error", err)
		return nil, reply, &ExchangeError{
			Stage:   StageDecode,
			Command: cmd,
			Counter: counter,
			Summary: summaryCounter,
			Err:     err,
		}
	}

	res := &Result{
		Command:   cmd,
		Counter:   counter,
		Header:    h,
		BytesRead: n,
	}

	if h.Failed() {
		res.Rejected = true
		res.Code = int(h.Status)
		res.Message = c.config.Catalog.Resolve(res.Code)

		dump := reply
		if declared < len(dump) {
			dump = dump[:declared]
		}
		c.logInfo("command rejected",
			"command", cmd.String(),
			"code", res.Code,
			"message", res.Message,
		)
		c.logDebug("rejected reply", "last_reply", hex.EncodeToString(dump))
		return res, reply, nil
	}

	res.Payload = protocol.ReplyPayload(h, reply, n)
	c.logDebug("reply received",
		"command", cmd.String(),
		"counter", h.Counter,
		"status", h.Status,
		"payload_len", len(res.Payload),
	)
	return res, reply, nil
}

// logDebug logs a debug message if a logger is configured.
func (c *Commander) logDebug(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (c *Commander) logInfo(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (c *Commander) logError(msg string, keysAndValues ...interface{}) {
	if c.config.Logger != nil {
		c.config.Logger.Error(msg, keysAndValues...)
	}
}
