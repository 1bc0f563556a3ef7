//go:build linux

// Package serial implements transport.Transport over a Linux tty, such as
// the /dev/rfcomm* node bound to a paired brick or a USB serial adapter.
package serial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/moffa90/go-ev3/protocol"
	"github.com/moffa90/go-ev3/transport"
)

// Config holds the port configuration.
type Config struct {
	// Device is the tty path, e.g. /dev/rfcomm0
	Device string

	// Baud is the line speed. Zero keeps the current speed, which is what
	// rfcomm nodes want since they ignore it.
	Baud int
}

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

// Port is an open serial device.
type Port struct {
	transport.ErrorTracker

	fd     int
	name   string
	closed bool
}

var _ transport.Transport = (*Port)(nil)

// Open opens the device read-write and switches it to raw mode.
// Devices that are not terminals (FIFOs, pipes) are used as they are.
func Open(cfg Config) (*Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("serial: device path is required")
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}

	if err := makeRaw(fd, cfg.Baud); err != nil && !errors.Is(err, unix.ENOTTY) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("serial: configure %s: %w", cfg.Device, err)
	}

	return newPort(fd, cfg.Device), nil
}

func newPort(fd int, name string) *Port {
	return &Port{fd: fd, name: name}
}

// makeRaw puts the terminal in raw 8N1 mode with blocking single-byte reads.
func makeRaw(fd int, baud int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	if baud != 0 {
		speed, ok := baudRates[baud]
		if !ok {
			return fmt.Errorf("unsupported baud rate %d", baud)
		}
		t.Cflag &^= unix.CBAUD
		t.Cflag |= speed
		t.Ispeed = speed
		t.Ospeed = speed
	}

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// Write writes p in a single system call. A short count is returned as is.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed {
		return 0, p.Record(transport.ErrClosed)
	}

	for {
		n, err := unix.Write(p.fd, b)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, p.Record(fmt.Errorf("serial %s: write: %w", p.name, err))
		}
		return n, nil
	}
}

// ReadTimeout reads one reply frame into b. It reads the length prefix,
// then keeps reading until the declared frame or b is full, all within a
// single timeout. If the deadline passes mid-frame the bytes received so far
// are returned without error so the caller can report the truncation.
// A non-positive timeout blocks until the frame is complete.
func (p *Port) ReadTimeout(b []byte, timeout time.Duration) (int, error) {
	if p.closed {
		return 0, p.Record(transport.ErrClosed)
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	got := 0
	want := min(len(b), protocol.PrefixSize)
	sized := false
	for got < want {
		if err := p.waitReadable(timeout, deadline); err != nil {
			if got > 0 && errors.Is(err, transport.ErrTimeout) {
				return got, nil
			}
			return got, p.Record(err)
		}

		n, err := p.read(b[got:want])
		if err != nil {
			return got, p.Record(err)
		}
		got += n

		if !sized && got >= protocol.PrefixSize {
			sized = true
			declared := int(binary.LittleEndian.Uint16(b[:protocol.PrefixSize]))
			want = min(len(b), protocol.PrefixSize+declared)
		}
	}
	return got, nil
}

// waitReadable polls until the device has data or the deadline passes.
func (p *Port) waitReadable(timeout time.Duration, deadline time.Time) error {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	for {
		ms := -1
		if timeout > 0 {
			left := time.Until(deadline)
			if left <= 0 {
				return fmt.Errorf("serial %s: %w after %s", p.name, transport.ErrTimeout, timeout)
			}
			ms = int((left + time.Millisecond - 1) / time.Millisecond)
		}

		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("serial %s: poll: %w", p.name, err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return fmt.Errorf("serial %s: device error (revents 0x%x)", p.name, fds[0].Revents)
		}
		return nil
	}
}

func (p *Port) read(b []byte) (int, error) {
	for {
		n, err := unix.Read(p.fd, b)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("serial %s: read: %w", p.name, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("serial %s: device hung up", p.name)
		}
		return n, nil
	}
}

// Close closes the device. Closing twice is a no-op.
func (p *Port) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if err := unix.Close(p.fd); err != nil {
		return p.Record(fmt.Errorf("serial %s: close: %w", p.name, err))
	}
	return nil
}
