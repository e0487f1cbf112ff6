package pak

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	errShortBuffer    = errors.New("unexpected end of buffer")
	errUnterminated   = errors.New("string is not NUL-terminated")
	errSeekOutOfRange = errors.New("seek outside buffer")
)

// Cursor is a bounds-checked read position over an owned byte buffer.
// Every read fails with a KindFormat error instead of reading past the end.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor positioned at the start of buf.
// The cursor takes ownership of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the size of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

func (c *Cursor) need(op string, n int) error {
	if n < 0 || c.Remaining() < n {
		return FormatError(op, int64(c.pos),
			fmt.Errorf("%w: need %d bytes, have %d", errShortBuffer, n, c.Remaining()))
	}
	return nil
}

// ReadUint reads a little-endian unsigned integer of size 1, 2 or 4 bytes.
func (c *Cursor) ReadUint(size int) (uint32, error) {
	op := fmt.Sprintf("read uint%d", size*8)
	if err := c.need(op, size); err != nil {
		return 0, err
	}

	b := c.buf[c.pos : c.pos+size]
	var v uint32
	switch size {
	case 1:
		v = uint32(b[0])
	case 2:
		v = uint32(binary.LittleEndian.Uint16(b))
	case 4:
		v = binary.LittleEndian.Uint32(b)
	default:
		return 0, FormatError(op, int64(c.pos), fmt.Errorf("unsupported integer size %d", size))
	}
	c.pos += size
	return v, nil
}

func (c *Cursor) Uint8() (uint8, error) {
	v, err := c.ReadUint(1)
	return uint8(v), err
}

func (c *Cursor) Uint16() (uint16, error) {
	v, err := c.ReadUint(2)
	return uint16(v), err
}

func (c *Cursor) Uint32() (uint32, error) {
	return c.ReadUint(4)
}

// Peek returns the next n bytes without advancing.
// The returned slice aliases the buffer.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if err := c.need("peek", n); err != nil {
		return nil, err
	}
	return c.buf[c.pos : c.pos+n], nil
}

// Skip advances past n bytes.
func (c *Cursor) Skip(n int) error {
	if err := c.need("skip", n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// Bytes reads n bytes. The returned slice aliases the buffer.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	b, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

// CString reads a NUL-terminated string and decodes it through cp.
// The scan never goes beyond the end of the buffer.
func (c *Cursor) CString(cp *CodePage) (string, error) {
	end := bytes.IndexByte(c.buf[c.pos:], 0)
	if end < 0 {
		return "", FormatError("read cstring", int64(c.pos), errUnterminated)
	}

	s := cp.Decode(c.buf[c.pos : c.pos+end])
	c.pos += end + 1
	return s, nil
}

// Seek sets the position for the next read, interpreted according to whence
// (io.SeekStart, io.SeekCurrent or io.SeekEnd). Positions outside [0, Len]
// are rejected.
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(c.pos)
	case io.SeekEnd:
		base = int64(len(c.buf))
	default:
		return int64(c.pos), FormatError("seek", int64(c.pos), fmt.Errorf("invalid whence %d", whence))
	}

	target := base + offset
	if target < 0 || target > int64(len(c.buf)) {
		return int64(c.pos), FormatError("seek", int64(c.pos),
			fmt.Errorf("%w: target %d, length %d", errSeekOutOfRange, target, len(c.buf)))
	}
	c.pos = int(target)
	return target, nil
}
