// Package simulator provides an in-memory brick that answers system
// commands through the transport.Transport interface.
//
// It keeps a small file system (directories, files, mailboxes and open
// listing handles) and can inject transport faults, which makes it usable
// for tests and for trying the CLI without hardware.
package simulator

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moffa90/go-ev3/protocol"
	"github.com/moffa90/go-ev3/transport"
)

// ProjectsDir is where the simulated brick keeps user programs.
const ProjectsDir = protocol.ProjectsDir

// maxHandles is the number of file handles the firmware can hold open.
const maxHandles = protocol.OpenHandlesBitmapSize * 8

// Brick simulates the system command side of an EV3 brick.
// Brick is safe for concurrent use.
type Brick struct {
	transport.ErrorTracker

	mu        sync.Mutex
	dirs      map[string]bool
	files     map[string][]byte
	mailboxes map[string][][]byte
	handles   map[byte][]byte // pending listing text per open handle
	pending   [][]byte
	requests  []protocol.RequestHeader
	closed    bool
	latency   time.Duration
	faults    Faults
}

// Faults configures transport misbehaviour. Faults stay active until
// replaced or cleared with SetFaults(Faults{}).
type Faults struct {
	// FailWrite makes Write fail with this error
	FailWrite error

	// FailRead makes ReadTimeout fail with this error
	FailRead error

	// ShortWrite makes Write report this many bytes fewer than given;
	// the request is not processed
	ShortWrite int

	// DropReply processes requests without queueing a reply
	DropReply bool

	// TruncateReply cuts replies to this many bytes when positive
	TruncateReply int

	// CorruptCounter answers with a counter that does not match the request
	CorruptCounter bool
}

var _ transport.Transport = (*Brick)(nil)

// New returns a brick with the stock directory layout.
func New() *Brick {
	b := &Brick{
		dirs:      make(map[string]bool),
		files:     make(map[string][]byte),
		mailboxes: make(map[string][][]byte),
		handles:   make(map[byte][]byte),
	}
	b.mkdirAll(ProjectsDir)
	return b
}

// SetLatency delays every reply by d.
func (b *Brick) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// SetFaults replaces the active faults.
func (b *Brick) SetFaults(f Faults) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = f
}

// AddFile stores a file, creating parent directories as needed.
func (b *Brick) AddFile(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name = clean(name)
	b.mkdirAll(path.Dir(name))
	b.files[name] = append([]byte(nil), data...)
}

// AddDir creates a directory and its parents.
func (b *Brick) AddDir(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mkdirAll(clean(name))
}

// Exists reports whether a file or directory exists.
func (b *Brick) Exists(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	name = clean(name)
	_, isFile := b.files[name]
	return isFile || b.dirs[name]
}

// Mailbox returns the messages written to a mailbox, oldest first.
func (b *Brick) Mailbox(name string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.mailboxes[name]...)
}

// OpenHandles returns the handles currently held open.
func (b *Brick) OpenHandles() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []byte
	for h := range b.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Requests returns the headers of every request processed so far.
func (b *Brick) Requests() []protocol.RequestHeader {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]protocol.RequestHeader(nil), b.requests...)
}

// Write accepts one request packet and queues the reply.
func (b *Brick) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, b.Record(transport.ErrClosed)
	}
	if b.faults.FailWrite != nil {
		return 0, b.Record(b.faults.FailWrite)
	}
	if b.faults.ShortWrite > 0 {
		n := len(p) - b.faults.ShortWrite
		if n < 0 {
			n = 0
		}
		return n, nil
	}

	h, payload, err := protocol.ParseRequest(p)
	if err != nil {
		return 0, b.Record(fmt.Errorf("simulator: malformed request: %w", err))
	}
	b.requests = append(b.requests, h)

	reply := b.handle(h, payload)
	if reply == nil || b.faults.DropReply {
		return len(p), nil
	}
	if b.faults.TruncateReply > 0 && b.faults.TruncateReply < len(reply) {
		reply = reply[:b.faults.TruncateReply]
	}
	b.pending = append(b.pending, reply)

	return len(p), nil
}

// ReadTimeout returns the oldest queued reply. With nothing queued it
// fails with transport.ErrTimeout at once; a brick that has nothing to say
// never will.
func (b *Brick) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	b.mu.Lock()
	latency := b.latency
	b.mu.Unlock()

	if latency > 0 {
		if timeout > 0 && latency > timeout {
			time.Sleep(timeout)
			return 0, b.record(fmt.Errorf("simulator: %w after %s", transport.ErrTimeout, timeout))
		}
		time.Sleep(latency)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, b.Record(transport.ErrClosed)
	}
	if b.faults.FailRead != nil {
		return 0, b.Record(b.faults.FailRead)
	}
	if len(b.pending) == 0 {
		return 0, b.Record(fmt.Errorf("simulator: %w: no reply pending", transport.ErrTimeout))
	}

	reply := b.pending[0]
	b.pending = b.pending[1:]
	return copy(p, reply), nil
}

func (b *Brick) record(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Record(err)
}

// Close marks the brick disconnected. Closing twice is a no-op.
func (b *Brick) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.pending = nil
	return nil
}

// handle dispatches one request and returns the encoded reply, or nil if
// the request asked for none.
func (b *Brick) handle(h protocol.RequestHeader, payload []byte) []byte {
	counter := h.Counter
	if b.faults.CorruptCounter {
		counter++
	}

	switch h.Type {
	case protocol.SystemCommandReply, protocol.SystemCommandNoReply:
	case protocol.DirectCommandNoReply:
		return nil
	default:
		return mustReply(counter, protocol.DirectReplyError, h.Command, 0, nil)
	}

	var status byte
	var result []byte
	switch h.Command {
	case protocol.CmdDeleteFile:
		status = b.handleDeleteFile(payload)
	case protocol.CmdCreateDir:
		status = b.handleCreateDir(payload)
	case protocol.CmdListFiles:
		status, result = b.handleListFiles(payload)
	case protocol.CmdContinueListFiles:
		status, result = b.handleContinueListFiles(payload)
	case protocol.CmdCloseFileHandle:
		status, result = b.handleCloseFileHandle(payload)
	case protocol.CmdListOpenHandles:
		status, result = b.handleListOpenHandles()
	case protocol.CmdWriteMailbox:
		status = b.handleWriteMailbox(payload)
	default:
		status = protocol.StatusUnknownError
	}

	if h.Type == protocol.SystemCommandNoReply {
		return nil
	}

	replyType := protocol.SystemReply
	if status != protocol.StatusSuccess && status != protocol.StatusEndOfFile {
		replyType = protocol.SystemReplyError
		result = nil
	}
	return mustReply(counter, replyType, h.Command, status, result)
}

func mustReply(counter uint16, t protocol.MessageType, cmd protocol.Command, status byte, result []byte) []byte {
	raw, err := protocol.BuildReply(counter, t, cmd, status, result)
	if err != nil {
		panic(fmt.Sprintf("simulator: build reply: %v", err))
	}
	return raw
}

func (b *Brick) handleDeleteFile(payload []byte) byte {
	name, ok := parsePath(payload)
	if !ok {
		return protocol.StatusIllegalFilename
	}

	if _, isFile := b.files[name]; isFile {
		delete(b.files, name)
		return protocol.StatusSuccess
	}
	if !b.dirs[name] {
		return protocol.StatusIllegalPath
	}
	if name == "/" || len(b.children(name)) > 0 {
		return protocol.StatusNoPermission
	}
	delete(b.dirs, name)
	return protocol.StatusSuccess
}

func (b *Brick) handleCreateDir(payload []byte) byte {
	name, ok := parsePath(payload)
	if !ok {
		return protocol.StatusIllegalFilename
	}

	if _, isFile := b.files[name]; isFile || b.dirs[name] {
		return protocol.StatusFileExists
	}
	if !b.dirs[path.Dir(name)] {
		return protocol.StatusIllegalPath
	}
	b.dirs[name] = true
	return protocol.StatusSuccess
}

func (b *Brick) handleListFiles(payload []byte) (byte, []byte) {
	if len(payload) < 2 {
		return protocol.StatusSizeError, nil
	}
	maxBytes := int(binary.LittleEndian.Uint16(payload[0:2]))
	name, ok := parsePath(payload[2:])
	if !ok {
		return protocol.StatusIllegalFilename, nil
	}
	if !b.dirs[name] {
		return protocol.StatusIllegalPath, nil
	}

	text := []byte(b.listing(name))
	head := make([]byte, protocol.ListFilesHeaderSize)
	binary.LittleEndian.PutUint32(head[0:4], uint32(len(text)))

	if len(text) <= maxBytes {
		return protocol.StatusEndOfFile, append(head, text...)
	}

	handle, ok := b.allocHandle()
	if !ok {
		return protocol.StatusNoHandlesAvailable, nil
	}
	b.handles[handle] = text[maxBytes:]
	head[4] = handle
	return protocol.StatusSuccess, append(head, text[:maxBytes]...)
}

func (b *Brick) handleContinueListFiles(payload []byte) (byte, []byte) {
	if len(payload) < 3 {
		return protocol.StatusSizeError, nil
	}
	handle := payload[0]
	maxBytes := int(binary.LittleEndian.Uint16(payload[1:3]))

	rest, ok := b.handles[handle]
	if !ok {
		return protocol.StatusUnknownHandle, nil
	}

	n := len(rest)
	if n > maxBytes {
		n = maxBytes
	}
	result := append([]byte{handle}, rest[:n]...)

	if n == len(rest) {
		delete(b.handles, handle)
		return protocol.StatusEndOfFile, result
	}
	b.handles[handle] = rest[n:]
	return protocol.StatusSuccess, result
}

func (b *Brick) handleCloseFileHandle(payload []byte) (byte, []byte) {
	if len(payload) < 1 {
		return protocol.StatusSizeError, nil
	}
	if _, ok := b.handles[payload[0]]; !ok {
		return protocol.StatusUnknownHandle, nil
	}
	delete(b.handles, payload[0])
	return protocol.StatusSuccess, []byte{payload[0]}
}

func (b *Brick) handleListOpenHandles() (byte, []byte) {
	bitmap := make([]byte, protocol.OpenHandlesBitmapSize)
	for h := range b.handles {
		bitmap[h/8] |= 1 << (h % 8)
	}
	return protocol.StatusSuccess, bitmap
}

func (b *Brick) handleWriteMailbox(payload []byte) byte {
	name, msg, err := protocol.ParseWriteMailboxPayload(payload)
	if err != nil {
		return protocol.StatusSizeError
	}
	b.mailboxes[name] = append(b.mailboxes[name], append([]byte(nil), msg...))
	return protocol.StatusSuccess
}

func (b *Brick) allocHandle() (byte, bool) {
	for h := 0; h < maxHandles; h++ {
		if _, used := b.handles[byte(h)]; !used {
			return byte(h), true
		}
	}
	return 0, false
}

// children returns the base names of the entries directly inside dir;
// directories carry a trailing slash.
func (b *Brick) children(dir string) []string {
	var names []string
	for d := range b.dirs {
		if d != dir && path.Dir(d) == dir {
			names = append(names, path.Base(d)+"/")
		}
	}
	for f := range b.files {
		if path.Dir(f) == dir {
			names = append(names, path.Base(f))
		}
	}
	sort.Strings(names)
	return names
}

// listing renders dir in the firmware listing format.
func (b *Brick) listing(dir string) string {
	var entries []protocol.FileEntry
	for _, name := range b.children(dir) {
		if strings.HasSuffix(name, "/") {
			entries = append(entries, protocol.FileEntry{Name: name})
			continue
		}
		data := b.files[path.Join(dir, name)]
		entries = append(entries, protocol.FileEntry{
			Name: name,
			Size: uint32(len(data)),
			MD5:  fmt.Sprintf("%X", md5.Sum(data)),
		})
	}
	return protocol.FormatListing(entries)
}

func (b *Brick) mkdirAll(dir string) {
	for {
		b.dirs[dir] = true
		if dir == "/" {
			return
		}
		dir = path.Dir(dir)
	}
}

// parsePath decodes a NUL-terminated path payload.
func parsePath(payload []byte) (string, bool) {
	i := strings.IndexByte(string(payload), 0)
	if i <= 0 {
		return "", false
	}
	return clean(string(payload[:i])), true
}

func clean(name string) string {
	return path.Clean("/" + name)
}
