// Package protocol implements the LEGO EV3 system command packet format.
//
// This package provides functions to build request packets, decode reply
// headers and resolve firmware error codes to readable messages.
//
// # Packet Overview
//
// Every packet is prefixed by its own length:
//
//	Request: [LEN_L][LEN_H][CNT_L][CNT_H][TYPE][CMD][PAYLOAD...]
//	Reply:   [LEN_L][LEN_H][CNT_L][CNT_H][TYPE][CMD][STATUS][RESULT...]
//
// Where:
//   - LEN = 16-bit count of the bytes following LEN (little-endian)
//   - CNT = 16-bit message counter, echoed by the reply
//   - TYPE = SystemCommandReply on requests; SystemReply or SystemReplyError on replies
//   - CMD = system command code (CmdDeleteFile, CmdListFiles, ...)
//   - STATUS = firmware return code
//
// # Request Builders
//
// Use BuildRequest for any command, or the typed Build*Cmd helpers:
//
//	packet, err := protocol.BuildRequest(counter, protocol.CmdDeleteFile, payload)
//	packet, err := protocol.BuildDeleteFileCmd(counter, "../prjs/demo/demo.rbf")
//
// # Reply Decoding
//
// DecodeReplyHeader only looks at the fixed header:
//
//	h, err := protocol.DecodeReplyHeader(buf[:n])
//	if h.Failed() {
//	    msg := protocol.DefaultCatalog().Resolve(int(h.Status))
//	}
//
// ReplyPayload returns the result bytes, bounded by the declared length.
//
// # Error Catalog
//
// Catalog maps firmware codes to messages. Codes outside the table resolve to
// OutOfBounds instead of failing.
package protocol
