package protocol

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// DecodeReplyHeader extracts the fixed header of a system reply.
//
// Reply structure:
//
//	[LEN_L][LEN_H][CNT_L][CNT_H][TYPE][CMD][STATUS][RESULT...]
//
// Returns a *DecodeError if fewer than MinReplySize bytes are given. The
// declared length is not compared with len(raw); callers that need the
// result bytes should use ReplyPayload.
func DecodeReplyHeader(raw []byte) (ReplyHeader, error) {
	if len(raw) < MinReplySize {
		return ReplyHeader{}, &DecodeError{Got: len(raw), Want: MinReplySize}
	}

	return ReplyHeader{
		Length:  binary.LittleEndian.Uint16(raw[0:2]),
		Counter: binary.LittleEndian.Uint16(raw[2:4]),
		Type:    MessageType(raw[4]),
		Command: Command(raw[5]),
		Status:  raw[6],
	}, nil
}

// ReplyPayload returns the result bytes of a reply of which n bytes were
// read. It never reaches past the declared length nor past n.
func ReplyPayload(h ReplyHeader, raw []byte, n int) []byte {
	end := h.FrameSize()
	if n < end {
		end = n
	}
	if len(raw) < end {
		end = len(raw)
	}
	if end <= MinReplySize {
		return nil
	}
	return raw[MinReplySize:end]
}

// BuildReply constructs a system reply packet. Devices and tests use it to
// answer requests.
func BuildReply(counter uint16, replyType MessageType, cmd Command, status byte, result []byte) ([]byte, error) {
	if len(result) > MaxPayloadSize-1 {
		return nil, &EncodingError{Command: cmd, PayloadLen: len(result)}
	}

	packet := make([]byte, MinReplySize+len(result))
	binary.LittleEndian.PutUint16(packet[0:2], uint16(len(packet)-PrefixSize))
	binary.LittleEndian.PutUint16(packet[2:4], counter)
	packet[4] = byte(replyType)
	packet[5] = byte(cmd)
	packet[6] = status
	copy(packet[MinReplySize:], result)

	return packet, nil
}

// ParseListFilesResponse parses the result bytes of a LIST_FILES reply.
//
// Data format:
//
//	[SIZE(4)][HANDLE(1)][LISTING...]
//
// Each listing line is either "name/" for a directory or
// "MD5 SIZE name" for a file, with SIZE in hexadecimal.
func ParseListFilesResponse(data []byte) (*Listing, error) {
	if len(data) < ListFilesHeaderSize {
		return nil, fmt.Errorf("invalid data length for List Files response: got %d bytes, minimum is %d", len(data), ListFilesHeaderSize)
	}

	listing := &Listing{
		Size:   binary.LittleEndian.Uint32(data[0:4]),
		Handle: data[4],
	}

	entries, err := ParseListing(string(data[ListFilesHeaderSize:]))
	if err != nil {
		return nil, err
	}
	listing.Entries = entries

	return listing, nil
}

// ParseListing parses listing text as produced by the firmware.
func ParseListing(text string) ([]FileEntry, error) {
	var entries []FileEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r\x00")
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, "/") {
			entries = append(entries, FileEntry{Name: line})
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed listing line %q", line)
		}
		size, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed size in listing line %q: %w", line, err)
		}
		entries = append(entries, FileEntry{
			Name: fields[2],
			Size: uint32(size),
			MD5:  fields[0],
		})
	}
	return entries, nil
}

// FormatListing renders entries in the firmware listing format.
func FormatListing(entries []FileEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			b.WriteString(e.Name)
		} else {
			fmt.Fprintf(&b, "%s %08X %s", e.MD5, e.Size, e.Name)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseListOpenHandlesResponse parses the LIST_OPEN_HANDLES bitmap and
// returns the open handle numbers in ascending order.
//
// Data format (4 bytes): bit n of byte n/8 is set when handle n is open.
func ParseListOpenHandlesResponse(data []byte) ([]byte, error) {
	if len(data) < OpenHandlesBitmapSize {
		return nil, fmt.Errorf("invalid data length for List Open Handles response: got %d bytes, minimum is %d", len(data), OpenHandlesBitmapSize)
	}

	var handles []byte
	for i, b := range data[:OpenHandlesBitmapSize] {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				handles = append(handles, byte(i*8+bit))
			}
		}
	}
	return handles, nil
}

// ParseWriteMailboxPayload splits a WRITEMAILBOX payload into name and message.
func ParseWriteMailboxPayload(payload []byte) (string, []byte, error) {
	if len(payload) < 1 {
		return "", nil, &DecodeError{Got: len(payload), Want: 1}
	}
	nameLen := int(payload[0])
	if nameLen == 0 || len(payload) < 1+nameLen+2 {
		return "", nil, &DecodeError{Got: len(payload), Want: 1 + nameLen + 2}
	}

	name := strings.TrimRight(string(payload[1:1+nameLen]), "\x00")
	off := 1 + nameLen
	msgLen := int(binary.LittleEndian.Uint16(payload[off : off+2]))
	off += 2
	if len(payload) < off+msgLen {
		return "", nil, &DecodeError{Got: len(payload), Want: off + msgLen}
	}

	return name, payload[off : off+msgLen], nil
}

// ParseContinueListFilesResponse parses the result bytes of a
// CONTINUE_LIST_FILES reply.
//
// Data format:
//
//	[HANDLE(1)][LISTING...]
func ParseContinueListFilesResponse(data []byte) (handle byte, chunk []byte, err error) {
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("invalid data length for Continue List Files response: got %d bytes, minimum is 1", len(data))
	}
	return data[0], data[1:], nil
}
