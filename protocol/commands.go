package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// BuildRequest constructs a system command packet that expects a reply.
// The payload is copied verbatim, never truncated or padded.
//
// Packet structure:
//
//	[LEN_L][LEN_H][CNT_L][CNT_H][TYPE][CMD][PAYLOAD...]
//
// LEN counts every byte after itself. Returns an *EncodingError, without
// allocating, if the payload cannot be described by LEN.
func BuildRequest(counter uint16, cmd Command, payload []byte) ([]byte, error) {
	return BuildRequestType(counter, SystemCommandReply, cmd, payload)
}

// BuildRequestType is BuildRequest with an explicit message type.
func BuildRequestType(counter uint16, msgType MessageType, cmd Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &EncodingError{Command: cmd, PayloadLen: len(payload)}
	}

	packet := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(packet[0:2], uint16(CounterSize+CommandSize+len(payload)))
	binary.LittleEndian.PutUint16(packet[2:4], counter)
	packet[4] = byte(msgType)
	packet[5] = byte(cmd)
	copy(packet[HeaderSize:], payload)

	return packet, nil
}

// ParseRequest extracts the header and payload of a request packet.
// The payload is bounded by the declared length.
func ParseRequest(packet []byte) (RequestHeader, []byte, error) {
	if len(packet) < HeaderSize {
		return RequestHeader{}, nil, &DecodeError{Got: len(packet), Want: HeaderSize}
	}

	h := RequestHeader{
		Length:  binary.LittleEndian.Uint16(packet[0:2]),
		Counter: binary.LittleEndian.Uint16(packet[2:4]),
		Type:    MessageType(packet[4]),
		Command: Command(packet[5]),
	}

	end := PrefixSize + int(h.Length)
	if end < HeaderSize {
		return RequestHeader{}, nil, fmt.Errorf("declared length %d is smaller than the header", h.Length)
	}
	if end > len(packet) {
		return RequestHeader{}, nil, &DecodeError{Got: len(packet), Want: end}
	}

	return h, packet[HeaderSize:end], nil
}

// PathPayload encodes a path as the NUL-terminated string the firmware expects.
func PathPayload(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.IndexByte(path, 0) >= 0 {
		return nil, fmt.Errorf("%w: path contains NUL byte", ErrInvalidPath)
	}

	payload := make([]byte, len(path)+1)
	copy(payload, path)
	return payload, nil
}

// BuildDeleteFileCmd constructs a DELETE_FILE packet.
//
// Payload structure:
//
//	[PATH...][0x00]
func BuildDeleteFileCmd(counter uint16, path string) ([]byte, error) {
	payload, err := PathPayload(path)
	if err != nil {
		return nil, err
	}
	return BuildRequest(counter, CmdDeleteFile, payload)
}

// BuildCreateDirCmd constructs a CREATE_DIR packet.
//
// Payload structure:
//
//	[PATH...][0x00]
func BuildCreateDirCmd(counter uint16, path string) ([]byte, error) {
	payload, err := PathPayload(path)
	if err != nil {
		return nil, err
	}
	return BuildRequest(counter, CmdCreateDir, payload)
}

// ListFilesPayload encodes the LIST_FILES payload.
//
//	[MAX_L][MAX_H][PATH...][0x00]
func ListFilesPayload(path string, maxBytes uint16) ([]byte, error) {
	p, err := PathPayload(path)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 2, 2+len(p))
	binary.LittleEndian.PutUint16(payload, maxBytes)
	return append(payload, p...), nil
}

// BuildListFilesCmd constructs a LIST_FILES packet requesting up to
// maxBytes of listing text.
func BuildListFilesCmd(counter uint16, path string, maxBytes uint16) ([]byte, error) {
	payload, err := ListFilesPayload(path, maxBytes)
	if err != nil {
		return nil, err
	}
	return BuildRequest(counter, CmdListFiles, payload)
}

// BuildCloseFileHandleCmd constructs a CLOSE_FILEHANDLE packet.
//
// Payload structure:
//
//	[HANDLE]
func BuildCloseFileHandleCmd(counter uint16, handle byte) ([]byte, error) {
	return BuildRequest(counter, CmdCloseFileHandle, []byte{handle})
}

// BuildListOpenHandlesCmd constructs a LIST_OPEN_HANDLES packet (no payload).
func BuildListOpenHandlesCmd(counter uint16) ([]byte, error) {
	return BuildRequest(counter, CmdListOpenHandles, nil)
}

// WriteMailboxPayload encodes the WRITEMAILBOX payload.
//
//	[NAME_LEN][NAME...][0x00][MSG_L][MSG_H][MSG...]
//
// NAME_LEN includes the terminating NUL.
func WriteMailboxPayload(name string, message []byte) ([]byte, error) {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return nil, fmt.Errorf("invalid mailbox name %q", name)
	}
	if len(name)+1 > 0xFF {
		return nil, fmt.Errorf("mailbox name length %d exceeds maximum %d", len(name), 0xFF-1)
	}
	if len(message) > 0xFFFF {
		return nil, fmt.Errorf("mailbox message length %d exceeds maximum %d", len(message), 0xFFFF)
	}

	payload := make([]byte, 0, 1+len(name)+1+2+len(message))
	payload = append(payload, byte(len(name)+1))
	payload = append(payload, name...)
	payload = append(payload, 0)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(message)))
	payload = append(payload, message...)
	return payload, nil
}

// BuildWriteMailboxCmd constructs a WRITEMAILBOX packet.
func BuildWriteMailboxCmd(counter uint16, name string, message []byte) ([]byte, error) {
	payload, err := WriteMailboxPayload(name, message)
	if err != nil {
		return nil, err
	}
	return BuildRequest(counter, CmdWriteMailbox, payload)
}

// ContinueListFilesPayload encodes the CONTINUE_LIST_FILES payload.
//
//	[HANDLE][MAX_L][MAX_H]
func ContinueListFilesPayload(handle byte, maxBytes uint16) []byte {
	payload := []byte{handle, 0, 0}
	binary.LittleEndian.PutUint16(payload[1:], maxBytes)
	return payload
}
