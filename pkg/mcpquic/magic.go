package mcpquic

import (
	"fmt"
	"io"
)

// The magic bytes are the first payload on every MCP stream, before any
// JSON-RPC traffic. They guard against ALPN confusion: a peer that
// negotiated the MCP token but speaks something else is rejected before
// its first message is parsed.

// SendMagicBytes writes the stream preamble. Clients call this right
// after opening the stream.
func SendMagicBytes(w io.Writer) error {
	if _, err := io.WriteString(w, MagicBytesMCP); err != nil {
		return fmt.Errorf("write magic bytes: %w", err)
	}
	return nil
}

// ValidateMagicBytes consumes and checks the stream preamble.
func ValidateMagicBytes(r io.Reader) error {
	var got [len(MagicBytesMCP)]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return fmt.Errorf("read magic bytes: %w", err)
	}
	if string(got[:]) != MagicBytesMCP {
		return fmt.Errorf("%w: got %q", ErrInvalidMagicBytes, got[:])
	}
	return nil
}
