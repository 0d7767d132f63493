package buf

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrShort is returned by Cursor reads that run past the end of the buffer.
var ErrShort = errors.New("buf: short buffer")

// Cursor reads fixed-width fields sequentially from a byte window. Every read
// is bounds checked; the offset only advances on success.
type Cursor struct {
	b     []byte
	off   int
	order binary.ByteOrder
}

// NewCursor returns a Cursor over b starting at offset 0.
func NewCursor(b []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{b: b, order: order}
}

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.b) - c.off }

// SetOrder changes the byte order used for subsequent reads.
func (c *Cursor) SetOrder(order binary.ByteOrder) { c.order = order }

// Bytes consumes n bytes and returns them without copying.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	s, ok := Slice(c.b, c.off, n)
	if !ok {
		return nil, ErrShort
	}
	c.off += n
	return s, nil
}

// U8 consumes one byte.
func (c *Cursor) U8() (uint8, error) {
	s, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// U16 consumes a uint16.
func (c *Cursor) U16() (uint16, error) {
	s, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(s), nil
}

// U32 consumes a uint32.
func (c *Cursor) U32() (uint32, error) {
	s, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(s), nil
}

// CString consumes a NUL-terminated string and returns its bytes without the
// terminator.
func (c *Cursor) CString() ([]byte, error) {
	if c.off >= len(c.b) {
		return nil, ErrShort
	}
	i := bytes.IndexByte(c.b[c.off:], 0)
	if i < 0 {
		return nil, ErrShort
	}
	s := c.b[c.off : c.off+i]
	c.off += i + 1
	return s, nil
}
