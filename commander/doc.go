// Package commander runs EV3 system commands over a transport.
//
// # Overview
//
// One call is one exchange: the request is framed with a fresh message
// counter, written in full, and the reply read back within the read
// timeout. The reply type decides the outcome:
//   - SystemReply: the command succeeded; Result.Payload holds the result bytes
//   - SystemReplyError: the brick rejected the command; Result.Code and
//     Result.Message describe why
//
// # Basic Usage
//
//	port, err := serial.Open(serial.Config{Device: "/dev/rfcomm0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	cmd := commander.New(port)
//
//	res, err := cmd.Execute(ctx, protocol.CmdDeleteFile, payload)
//	if err != nil {
//	    log.Fatal(err) // transport or framing failure
//	}
//	if res.Rejected {
//	    fmt.Println("denied:", res.Message)
//	}
//
// The convenience operations (DeleteFile, CreateDir, ListFiles,
// CloseFileHandle, ListOpenHandles, WriteMailbox) return a *RejectedError
// instead of a rejected Result.
//
// # Configuration Options
//
//	cmd := commander.New(port,
//	    commander.WithLogger(logger),
//	    commander.WithReadTimeout(2*time.Second),
//	    commander.WithCommandInterval(20*time.Millisecond),
//	    commander.WithStrictCounter(true),
//	    commander.WithTraceCallback(traceFunc),
//	)
//
// # Error Handling
//
// Failures that leave no usable reply are *ExchangeError values. Match the
// stage with errors.Is:
//   - ErrEncoding: payload too large, nothing was sent
//   - ErrTransportWrite: the request was not fully written, no read attempted
//   - ErrTransportRead: no reply, or a reply shorter than its header
//     (also matches protocol.ErrTruncated)
//   - ErrCounterMismatch: strict mode only
//
// Nothing is retried.
package commander
