package protocol

// RequestHeader is the fixed part of a request packet.
type RequestHeader struct {
	// Length is the declared byte count following the prefix
	Length uint16

	// Counter correlates the request with its reply
	Counter uint16

	// Type is the request message type
	Type MessageType

	// Command is the system command code
	Command Command
}

// ReplyHeader is the fixed part of a system reply packet.
// Returned by DecodeReplyHeader.
type ReplyHeader struct {
	// Length is the declared byte count following the prefix.
	// It is not checked against the bytes actually received.
	Length uint16

	// Counter echoes the counter of the request
	Counter uint16

	// Type tells a completed command from a VM error
	Type MessageType

	// Command echoes the command code of the request
	Command Command

	// Status is the firmware return code. On a VM error it is the
	// error code to resolve through a Catalog.
	Status byte
}

// Failed reports whether the reply carries a VM error.
func (h ReplyHeader) Failed() bool {
	return h.Type.IsError()
}

// FrameSize is the total packet size the header declares.
func (h ReplyHeader) FrameSize() int {
	return PrefixSize + int(h.Length)
}

// Listing is one chunk of a LIST_FILES reply.
type Listing struct {
	// Size is the total size of the listing on the brick
	Size uint32

	// Handle continues the listing with CONTINUE_LIST_FILES
	Handle byte

	// Entries are the parsed lines of this chunk
	Entries []FileEntry
}

// FileEntry is one line of a directory listing.
type FileEntry struct {
	// Name is the file or directory name; directories end in '/'
	Name string

	// Size is the file size in bytes (zero for directories)
	Size uint32

	// MD5 is the hex digest the firmware reports for files
	MD5 string
}

// IsDir reports whether the entry is a directory.
func (e FileEntry) IsDir() bool {
	return len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/'
}
