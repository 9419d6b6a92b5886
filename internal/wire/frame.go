// Package wire implements the two length-prefixed framings this module
// uses on the wire: 16-bit big-endian length prefixes (shared by handshake
// messages and transport records) and the handshake payload's
// protobuf-compatible encoding.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxFrameLen is the largest body a uint16-BE length prefix can carry.
const MaxFrameLen = 0xffff

// ErrFrameTooLarge is returned by WriteFrame when asked to frame a body
// that would not fit in a 16-bit length prefix.
var ErrFrameTooLarge = errors.New("wire: frame exceeds 65535 bytes")

// WriteFrame writes a uint16-BE length prefix followed by body to w.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameLen {
		return ErrFrameTooLarge
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one uint16-BE length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return nil, nil
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
