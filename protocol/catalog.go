package protocol

// OutOfBounds is returned by Resolve for codes outside the table.
const OutOfBounds = "ERROR_OUT_OF_BOUNDS"

// Catalog maps firmware error codes to descriptive messages.
// A Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	entries []string
}

// NewCatalog returns a catalog whose entry i describes code i.
func NewCatalog(entries ...string) *Catalog {
	c := &Catalog{entries: make([]string, len(entries))}
	copy(c.entries, entries)
	return c
}

var defaultCatalog = NewCatalog(
	"SUCCESS: operation completed",
	"UNKNOWN_HANDLE: file handle is not known to the brick",
	"HANDLE_NOT_READY: file handle is not ready",
	"CORRUPT_FILE: file data is corrupt",
	"NO_HANDLES_AVAILABLE: brick has no free file handles",
	"NO_PERMISSION: permission denied",
	"ILLEGAL_PATH: path does not exist or is not allowed",
	"FILE_EXISTS: file already exists",
	"END_OF_FILE: end of file reached",
	"SIZE_ERROR: size does not match",
	"UNKNOWN_ERROR: unspecified firmware error",
	"ILLEGAL_FILENAME: file name is not allowed",
	"ILLEGAL_CONNECTION: command not allowed on this connection",
)

// DefaultCatalog returns the catalog of EV3 system return codes.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Resolve returns the message for code, or OutOfBounds if the code
// is negative or not in the table.
func (c *Catalog) Resolve(code int) string {
	if c == nil || code < 0 || code >= len(c.entries) {
		return OutOfBounds
	}
	return c.entries[code]
}

// Len returns the number of known codes.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}
