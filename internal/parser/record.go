package parser

import (
	"errors"
	"fmt"

	"github.com/ossyrian/pakparse/internal/pak"
)

// DecodeFileRecord decodes one file record at the cursor and leaves the
// cursor on the byte after it.
//
//	[marker u16][name cstring][offset u32][reserved u32]
//	[decompressed size u32][reserved u32][flag u16]
//	[compressed size u32][reserved u32]
func DecodeFileRecord(c *pak.Cursor, cp *pak.CodePage) (pak.FileEntry, error) {
	start := c.Pos()
	fail := func(field string, err error) (pak.FileEntry, error) {
		return pak.FileEntry{}, fmt.Errorf("file record at offset %d: %s: %w", start, field, err)
	}

	var (
		e   pak.FileEntry
		err error
	)

	if e.Marker, err = c.Uint16(); err != nil {
		return fail("marker", err)
	}

	if e.Name, err = c.CString(cp); err != nil {
		return fail("name", err)
	}
	if e.Name == "" {
		return fail("name", pak.FormatError("read file name", int64(start), errors.New("empty file name")))
	}

	if e.SourceOffset, err = c.Uint32(); err != nil {
		return fail("source offset", err)
	}
	if e.Reserved[0], err = c.Uint32(); err != nil {
		return fail("reserved after source offset", err)
	}

	if e.DecompressedSize, err = c.Uint32(); err != nil {
		return fail("decompressed size", err)
	}
	if e.Reserved[1], err = c.Uint32(); err != nil {
		return fail("reserved after decompressed size", err)
	}

	flag, err := c.Uint16()
	if err != nil {
		return fail("compression flag", err)
	}
	e.Compression = pak.Compression(flag)

	if e.CompressedSize, err = c.Uint32(); err != nil {
		return fail("compressed size", err)
	}
	if e.Reserved[2], err = c.Uint32(); err != nil {
		return fail("reserved after compressed size", err)
	}

	return e, nil
}
