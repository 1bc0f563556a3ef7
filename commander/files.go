package commander

import (
	"context"
	"fmt"

	"github.com/moffa90/go-ev3/protocol"
)

// run executes cmd and turns a rejection into a *RejectedError.
func (c *Commander) run(ctx context.Context, cmd protocol.Command, payload []byte) (*Result, error) {
	res, err := c.Execute(ctx, cmd, payload)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteFile removes a file or an empty directory on the brick.
//
// Example:
//
//	err := cmd.DeleteFile(ctx, "/home/root/lms2012/prjs/demo/demo.rbf")
//	if commander.IsRejected(err) {
//	    // the brick refused, e.g. the file does not exist
//	}
func (c *Commander) DeleteFile(ctx context.Context, path string) error {
	payload, err := protocol.PathPayload(path)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, protocol.CmdDeleteFile, payload)
	return err
}

// CreateDir creates a directory on the brick.
func (c *Commander) CreateDir(ctx context.Context, path string) error {
	payload, err := protocol.PathPayload(path)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, protocol.CmdCreateDir, payload)
	return err
}

// ListFiles returns the full listing of a directory, following up with
// CONTINUE_LIST_FILES until the brick reports the end of the listing.
func (c *Commander) ListFiles(ctx context.Context, path string) (*protocol.Listing, error) {
	payload, err := protocol.ListFilesPayload(path, protocol.DefaultListChunk)
	if err != nil {
		return nil, err
	}

	res, err := c.run(ctx, protocol.CmdListFiles, payload)
	if err != nil {
		return nil, err
	}

	first, err := protocol.ParseListFilesResponse(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("list files %s: %w", path, err)
	}
	text := append([]byte(nil), res.Payload[protocol.ListFilesHeaderSize:]...)
	handle := first.Handle
	status := res.Status()

	for status == protocol.StatusSuccess && uint32(len(text)) < first.Size {
		res, err = c.run(ctx, protocol.CmdContinueListFiles,
			protocol.ContinueListFilesPayload(handle, protocol.DefaultListChunk))
		if err != nil {
			return nil, err
		}

		var chunk []byte
		handle, chunk, err = protocol.ParseContinueListFilesResponse(res.Payload)
		if err != nil {
			return nil, fmt.Errorf("list files %s: %w", path, err)
		}
		if len(chunk) == 0 {
			break
		}
		text = append(text, chunk...)
		status = res.Status()
	}

	entries, err := protocol.ParseListing(string(text))
	if err != nil {
		return nil, fmt.Errorf("list files %s: %w", path, err)
	}

	return &protocol.Listing{
		Size:    first.Size,
		Handle:  first.Handle,
		Entries: entries,
	}, nil
}

// CloseFileHandle closes a handle the brick still holds open.
func (c *Commander) CloseFileHandle(ctx context.Context, handle byte) error {
	_, err := c.run(ctx, protocol.CmdCloseFileHandle, []byte{handle})
	return err
}

// ListOpenHandles returns the handles the brick holds open.
func (c *Commander) ListOpenHandles(ctx context.Context) ([]byte, error) {
	res, err := c.run(ctx, protocol.CmdListOpenHandles, nil)
	if err != nil {
		return nil, err
	}
	return protocol.ParseListOpenHandlesResponse(res.Payload)
}

// WriteMailbox posts message to the named mailbox of the running program.
func (c *Commander) WriteMailbox(ctx context.Context, name string, message []byte) error {
	payload, err := protocol.WriteMailboxPayload(name, message)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, protocol.CmdWriteMailbox, payload)
	return err
}
