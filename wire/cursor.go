// Package wire provides the big-endian, bounds-checked byte primitives the
// IPFIX structural parser is built on. Every read distinguishes a short
// buffer (Incomplete, via ErrIncomplete) from a well-formed-but-invalid
// encoding (a plain error) — callers use errors.Is(err, wire.ErrIncomplete)
// to tell the two apart, the same three-way split nom's parser combinators
// gave the original Rust implementation this module was distilled from.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// ErrIncomplete is the sentinel wrapped by IncompleteError. It is not a
// failure: it tells the caller exactly how many more bytes are needed
// before the read can be retried.
var ErrIncomplete = errors.New("incomplete: need more bytes")

// IncompleteError carries the number of additional bytes required for the
// read that failed to complete. Need is always > 0.
type IncompleteError struct {
	Need int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s (%d more)", ErrIncomplete, e.Need)
}

func (e *IncompleteError) Unwrap() error { return ErrIncomplete }

func incomplete(need int) error {
	return &IncompleteError{Need: need}
}

// Cursor is a read-only view over a byte slice with a current offset. All
// reads advance the offset only on success; a failed read leaves the
// cursor untouched so that callers may retry once more bytes arrive.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor wraps buf for sequential, bounds-checked reads.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset returns the number of bytes already consumed.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Rest returns the unread tail of the underlying buffer without consuming it.
func (c *Cursor) Rest() []byte { return c.buf[c.off:] }

func (c *Cursor) need(n int) error {
	if c.Remaining() < n {
		return incomplete(n - c.Remaining())
	}
	return nil
}

// Bytes consumes and returns a copy of the next n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.buf[c.off:c.off+n])
	c.off += n
	return out, nil
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (c *Cursor) PeekBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	return c.buf[c.off : c.off+n], nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *Cursor) Int8() (int8, error) {
	v, err := c.Uint8()
	return int8(v), err
}

func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

func (c *Cursor) Int64() (int64, error) {
	v, err := c.Uint64()
	return int64(v), err
}

func (c *Cursor) Float32() (float32, error) {
	v, err := c.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *Cursor) Float64() (float64, error) {
	v, err := c.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// VarBytes reads an IPFIX variable-length octet field: a one-byte length
// prefix (0..=254), or 0xFF followed by a big-endian uint16 length for
// longer payloads.
func (c *Cursor) VarBytes() ([]byte, error) {
	start := c.off
	prefix, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	length := int(prefix)
	if prefix == 0xFF {
		// need 2 more bytes for the long-form length; if short, restore
		// the cursor so the caller can retry the whole read once more
		// bytes are available.
		if err := c.need(2); err != nil {
			c.off = start
			return nil, err
		}
		l, _ := c.Uint16()
		length = int(l)
	}
	b, err := c.Bytes(length)
	if err != nil {
		c.off = start
		return nil, err
	}
	return b, nil
}

// VarString reads a variable-length field per VarBytes and validates it as
// UTF-8, returning ErrNotUTF8 (distinct from Incomplete/Malformed framing
// errors — callers surface this as the semantic StringNotUtf8 error) if it
// is not.
func (c *Cursor) VarString() (string, error) {
	b, err := c.VarBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrNotUTF8
	}
	return string(b), nil
}

// ErrNotUTF8 is returned by VarString when the payload is not valid UTF-8.
var ErrNotUTF8 = errors.New("payload is not valid utf-8")
