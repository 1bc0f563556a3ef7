package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name    string
		counter uint16
		cmd     Command
		payload []byte
	}{
		{
			name:    "no payload",
			counter: 0,
			cmd:     CmdListOpenHandles,
			payload: nil,
		},
		{
			name:    "path payload",
			counter: 7,
			cmd:     CmdDeleteFile,
			payload: []byte("foo.txt\x00"),
		},
		{
			name:    "binary payload with zero bytes",
			counter: 0xBEEF,
			cmd:     CmdContinueDownload,
			payload: []byte{0x00, 0x01, 0x00, 0xFF},
		},
		{
			name:    "maximum payload",
			counter: 1,
			cmd:     CmdContinueDownload,
			payload: make([]byte, MaxPayloadSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := BuildRequest(tt.counter, tt.cmd, tt.payload)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(packet) != HeaderSize+len(tt.payload) {
				t.Errorf("packet length = %d, want %d", len(packet), HeaderSize+len(tt.payload))
			}

			length := binary.LittleEndian.Uint16(packet[0:2])
			if int(length) != len(packet)-PrefixSize {
				t.Errorf("length prefix = %d, want %d", length, len(packet)-PrefixSize)
			}

			if got := binary.LittleEndian.Uint16(packet[2:4]); got != tt.counter {
				t.Errorf("counter = 0x%04X, want 0x%04X", got, tt.counter)
			}

			if MessageType(packet[4]) != SystemCommandReply {
				t.Errorf("TYPE = 0x%02X, want 0x%02X", packet[4], SystemCommandReply)
			}

			if Command(packet[5]) != tt.cmd {
				t.Errorf("CMD = 0x%02X, want 0x%02X", packet[5], tt.cmd)
			}

			if !bytes.Equal(packet[HeaderSize:], tt.payload) {
				t.Errorf("payload = %v, want %v", packet[HeaderSize:], tt.payload)
			}
		})
	}
}

func TestBuildRequestPayloadTooLarge(t *testing.T) {
	for _, size := range []int{MaxPayloadSize + 1, 0xFFFF, 0x10000, 1 << 20} {
		packet, err := BuildRequest(1, CmdContinueDownload, make([]byte, size))
		if err == nil {
			t.Fatalf("size %d: expected error, got nil", size)
		}
		if packet != nil {
			t.Errorf("size %d: packet should be nil on error", size)
		}
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Errorf("size %d: error = %v, want ErrPayloadTooLarge", size, err)
		}

		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Fatalf("size %d: error should be *EncodingError, got %T", size, err)
		}
		if encErr.PayloadLen != size {
			t.Errorf("PayloadLen = %d, want %d", encErr.PayloadLen, size)
		}
	}
}

func TestBuildDeleteFileCmdBytes(t *testing.T) {
	packet, err := BuildDeleteFileCmd(0, "foo.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	length := binary.LittleEndian.Uint16(packet[0:2])
	if want := uint16(CounterSize + CommandSize + 8); length != want {
		t.Errorf("length prefix = %d, want %d", length, want)
	}

	if !bytes.Equal(packet[HeaderSize:], []byte("foo.txt\x00")) {
		t.Errorf("payload = %q, want %q", packet[HeaderSize:], "foo.txt\x00")
	}
}

func TestPathPayload(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []byte
		wantErr bool
	}{
		{
			name: "relative path",
			path: "../prjs/demo/demo.rbf",
			want: []byte("../prjs/demo/demo.rbf\x00"),
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
		{
			name:    "embedded NUL",
			path:    "foo\x00bar",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PathPayload(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("error = %v, want ErrInvalidPath", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("payload = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypedBuilders(t *testing.T) {
	tests := []struct {
		name        string
		build       func() ([]byte, error)
		wantCmd     Command
		wantPayload []byte
	}{
		{
			name:        "create dir",
			build:       func() ([]byte, error) { return BuildCreateDirCmd(1, "../prjs/new") },
			wantCmd:     CmdCreateDir,
			wantPayload: []byte("../prjs/new\x00"),
		},
		{
			name:        "list files",
			build:       func() ([]byte, error) { return BuildListFilesCmd(2, "/", 1000) },
			wantCmd:     CmdListFiles,
			wantPayload: []byte{0xE8, 0x03, '/', 0x00},
		},
		{
			name:        "close file handle",
			build:       func() ([]byte, error) { return BuildCloseFileHandleCmd(3, 0x05) },
			wantCmd:     CmdCloseFileHandle,
			wantPayload: []byte{0x05},
		},
		{
			name:        "list open handles",
			build:       func() ([]byte, error) { return BuildListOpenHandlesCmd(4) },
			wantCmd:     CmdListOpenHandles,
			wantPayload: []byte{},
		},
		{
			name:        "write mailbox",
			build:       func() ([]byte, error) { return BuildWriteMailboxCmd(5, "abc", []byte("hi")) },
			wantCmd:     CmdWriteMailbox,
			wantPayload: []byte{0x04, 'a', 'b', 'c', 0x00, 0x02, 0x00, 'h', 'i'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := tt.build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			h, payload, err := ParseRequest(packet)
			if err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if h.Command != tt.wantCmd {
				t.Errorf("command = %s, want %s", h.Command, tt.wantCmd)
			}
			if !bytes.Equal(payload, tt.wantPayload) {
				t.Errorf("payload = %v, want %v", payload, tt.wantPayload)
			}
		})
	}
}

func TestWriteMailboxPayloadValidation(t *testing.T) {
	if _, err := WriteMailboxPayload("", nil); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := WriteMailboxPayload(string(bytes.Repeat([]byte("n"), 255)), nil); err == nil {
		t.Error("expected error for name longer than 254 bytes")
	}

	payload, err := WriteMailboxPayload("box", []byte("message"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, msg, err := ParseWriteMailboxPayload(payload)
	if err != nil {
		t.Fatalf("ParseWriteMailboxPayload: %v", err)
	}
	if name != "box" || string(msg) != "message" {
		t.Errorf("got name=%q msg=%q", name, msg)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	counters := []uint16{0, 1, 0x7FFF, 0xFFFF}
	commands := []Command{CmdDeleteFile, CmdCreateDir, CmdListFiles, CmdWriteMailbox, Command(0x42)}

	for _, counter := range counters {
		for _, cmd := range commands {
			packet, err := BuildRequest(counter, cmd, []byte("payload"))
			if err != nil {
				t.Fatalf("BuildRequest: %v", err)
			}

			h, payload, err := ParseRequest(packet)
			if err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if h.Counter != counter {
				t.Errorf("counter = %d, want %d", h.Counter, counter)
			}
			if h.Command != cmd {
				t.Errorf("command = 0x%02X, want 0x%02X", h.Command, cmd)
			}
			if string(payload) != "payload" {
				t.Errorf("payload = %q", payload)
			}
		}
	}
}

func TestParseRequestErrors(t *testing.T) {
	if _, _, err := ParseRequest([]byte{0x04, 0x00, 0x01}); !errors.Is(err, ErrTruncated) {
		t.Errorf("short header: error = %v, want ErrTruncated", err)
	}

	// Declares 10 bytes after the prefix but carries only 4.
	packet := []byte{0x0A, 0x00, 0x01, 0x00, 0x01, 0x9C}
	if _, _, err := ParseRequest(packet); !errors.Is(err, ErrTruncated) {
		t.Errorf("short body: error = %v, want ErrTruncated", err)
	}

	// Declares fewer bytes than the header itself.
	packet = []byte{0x01, 0x00, 0x01, 0x00, 0x01, 0x9C}
	if _, _, err := ParseRequest(packet); err == nil {
		t.Error("expected error for undersized length prefix")
	}
}

func TestParseRequestIgnoresTrailingBytes(t *testing.T) {
	packet, err := BuildDeleteFileCmd(9, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	packet = append(packet, 0xDE, 0xAD)

	_, payload, err := ParseRequest(packet)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !bytes.Equal(payload, []byte("a\x00")) {
		t.Errorf("payload = %v, want %v", payload, []byte("a\x00"))
	}
}

func TestCommandString(t *testing.T) {
	if CmdDeleteFile.String() != "DELETE_FILE" {
		t.Errorf("String() = %q", CmdDeleteFile.String())
	}
	if Command(0x01).String() != "UNKNOWN_COMMAND" {
		t.Errorf("String() = %q", Command(0x01).String())
	}
}
