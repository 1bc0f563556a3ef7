package protocol

// Frame layout constants. All multi-byte fields are little-endian.
const (
	// PrefixSize is the size of the length prefix that opens every packet.
	// The prefix counts the bytes that follow it, never itself.
	PrefixSize = 2

	// CounterSize is the size of the message counter field
	CounterSize = 2

	// CommandSize is the size of the command type: message type (1) + command (1)
	CommandSize = 2

	// HeaderSize is the full request header size:
	// LEN(2) + COUNTER(2) + TYPE(1) + CMD(1)
	HeaderSize = PrefixSize + CounterSize + CommandSize

	// MinReplySize is the smallest valid system reply:
	// LEN(2) + COUNTER(2) + TYPE(1) + CMD(1) + STATUS(1)
	MinReplySize = HeaderSize + 1

	// MaxPayloadSize is the largest payload whose length still fits in the prefix.
	MaxPayloadSize = 0xFFFF - CounterSize - CommandSize

	// DefaultMaxReplySize is the default reply buffer size.
	// EV3 firmware never sends packets larger than 1024 bytes.
	DefaultMaxReplySize = 1024
)

// ProjectsDir is the directory user programs live in on a stock brick.
const ProjectsDir = "/home/root/lms2012/prjs"


// MessageType is the first byte after the counter. On requests it selects
// the command class, on replies it tells success from a VM error.
type MessageType byte

// Request message types.
const (
	// DirectCommandReply runs VM bytecode and expects a reply
	DirectCommandReply MessageType = 0x00

	// SystemCommandReply runs a system command and expects a reply
	SystemCommandReply MessageType = 0x01

	// DirectCommandNoReply runs VM bytecode without a reply
	DirectCommandNoReply MessageType = 0x80

	// SystemCommandNoReply runs a system command without a reply
	SystemCommandNoReply MessageType = 0x81
)

// Reply message types.
const (
	// DirectReply reports a completed direct command
	DirectReply MessageType = 0x02

	// SystemReply reports a completed system command
	SystemReply MessageType = 0x03

	// DirectReplyError reports a failed direct command
	DirectReplyError MessageType = 0x04

	// SystemReplyError reports a system command rejected by the VM
	SystemReplyError MessageType = 0x05
)

// IsError reports whether t is a VM error reply.
func (t MessageType) IsError() bool {
	return t == SystemReplyError || t == DirectReplyError
}

// Command is a system command code.
type Command byte

// System command codes understood by the brick firmware.
const (
	// CmdBeginDownload starts a file download to the brick
	CmdBeginDownload Command = 0x92

	// CmdContinueDownload sends the next chunk of a download
	CmdContinueDownload Command = 0x93

	// CmdBeginUpload starts reading a file from the brick
	CmdBeginUpload Command = 0x94

	// CmdContinueUpload reads the next chunk of an upload
	CmdContinueUpload Command = 0x95

	// CmdBeginGetFile starts reading a file that is still being written
	CmdBeginGetFile Command = 0x96

	// CmdContinueGetFile reads the next chunk of a get-file transfer
	CmdContinueGetFile Command = 0x97

	// CmdCloseFileHandle closes a file handle left open on the brick
	CmdCloseFileHandle Command = 0x98

	// CmdListFiles lists the content of a directory
	CmdListFiles Command = 0x99

	// CmdContinueListFiles reads the next chunk of a directory listing
	CmdContinueListFiles Command = 0x9A

	// CmdCreateDir creates a directory
	CmdCreateDir Command = 0x9B

	// CmdDeleteFile deletes a file or an empty directory
	CmdDeleteFile Command = 0x9C

	// CmdListOpenHandles returns a bitmap of open file handles
	CmdListOpenHandles Command = 0x9D

	// CmdWriteMailbox writes a message to a named mailbox
	CmdWriteMailbox Command = 0x9E

	// CmdBluetoothPin sets the Bluetooth PIN
	CmdBluetoothPin Command = 0x9F

	// CmdEnterFirmwareUpdate reboots the brick into firmware update mode
	CmdEnterFirmwareUpdate Command = 0xA0
)

var commandNames = map[Command]string{
	CmdBeginDownload:       "BEGIN_DOWNLOAD",
	CmdContinueDownload:    "CONTINUE_DOWNLOAD",
	CmdBeginUpload:         "BEGIN_UPLOAD",
	CmdContinueUpload:      "CONTINUE_UPLOAD",
	CmdBeginGetFile:        "BEGIN_GETFILE",
	CmdContinueGetFile:     "CONTINUE_GETFILE",
	CmdCloseFileHandle:     "CLOSE_FILEHANDLE",
	CmdListFiles:           "LIST_FILES",
	CmdContinueListFiles:   "CONTINUE_LIST_FILES",
	CmdCreateDir:           "CREATE_DIR",
	CmdDeleteFile:          "DELETE_FILE",
	CmdListOpenHandles:     "LIST_OPEN_HANDLES",
	CmdWriteMailbox:        "WRITEMAILBOX",
	CmdBluetoothPin:        "BLUETOOTHPIN",
	CmdEnterFirmwareUpdate: "ENTERFWUPDATE",
}

// String returns the firmware name of the command.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "UNKNOWN_COMMAND"
}

// System reply status codes. They index the default error catalog.
const (
	StatusSuccess            = 0x00
	StatusUnknownHandle      = 0x01
	StatusHandleNotReady     = 0x02
	StatusCorruptFile        = 0x03
	StatusNoHandlesAvailable = 0x04
	StatusNoPermission       = 0x05
	StatusIllegalPath        = 0x06
	StatusFileExists         = 0x07
	StatusEndOfFile          = 0x08
	StatusSizeError          = 0x09
	StatusUnknownError       = 0x0A
	StatusIllegalFilename    = 0x0B
	StatusIllegalConnection  = 0x0C
)

// Result payload sizes.
const (
	// ListFilesHeaderSize is LIST_SIZE(4) + HANDLE(1)
	ListFilesHeaderSize = 5

	// OpenHandlesBitmapSize is the size of the LIST_OPEN_HANDLES bitmap
	OpenHandlesBitmapSize = 4

	// DefaultListChunk is the number of listing bytes requested per LIST_FILES
	DefaultListChunk = 1000
)
