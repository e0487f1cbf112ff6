package pak

import (
	"fmt"
	"log/slog"

	"github.com/ossyrian/pakparse/internal/units"
)

// Header is the fixed 25-byte header at the start of a pak file.
type Header struct {
	DirectoryOffset uint32   // absolute offset of the directory segment
	Reserved        [21]byte // bytes [4,25), not interpreted
}

// Label renders the first 17 header bytes as text, with '.' for control
// characters and anything above 0x7f.
func (h *Header) Label() string {
	var raw [HeaderSize]byte
	raw[0] = byte(h.DirectoryOffset)
	raw[1] = byte(h.DirectoryOffset >> 8)
	raw[2] = byte(h.DirectoryOffset >> 16)
	raw[3] = byte(h.DirectoryOffset >> 24)
	copy(raw[4:], h.Reserved[:])

	out := make([]byte, LabelSize)
	for i, b := range raw[:LabelSize] {
		if b >= 32 && b < 128 {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// Archive is a parsed pak file with both segments fully buffered.
// It is not modified after ReadArchive returns.
type Archive struct {
	Path          string
	Header        Header
	TotalSize     int64
	DirectorySize int64

	// Data holds the payload bytes between the header and the directory.
	// FileEntry.SourceOffset is relative to its start.
	Data []byte
	// Directory holds the bytes from DirectoryOffset to EOF.
	Directory []byte
}

// Table is the decoded directory segment.
type Table struct {
	Preamble       [PreambleSize]byte
	DirectoryCount uint16
	Directories    []Directory
	// Trailing is the number of bytes left after the last directory.
	Trailing int
}

// FileCount returns the number of file records across all directories.
func (t *Table) FileCount() int {
	n := 0
	for _, d := range t.Directories {
		n += len(d.Files)
	}
	return n
}

// Directory is one named directory and its files in on-disk order.
type Directory struct {
	Index int
	Name  string
	Files []FileEntry
	End   Terminator
}

// Terminator is a 2-byte value that ends a directory's file list.
//
// Two values are known. Both end the list; what else distinguishes them is
// not known, so they are kept apart instead of being folded into one.
type Terminator uint16

const (
	EndOfList04 Terminator = 0x0004
	EndOfList01 Terminator = 0x0001
)

// AsTerminator reports whether v is one of the known terminators.
func AsTerminator(v uint16) (Terminator, bool) {
	switch t := Terminator(v); t {
	case EndOfList04, EndOfList01:
		return t, true
	default:
		return 0, false
	}
}

func (t Terminator) String() string {
	switch t {
	case EndOfList04:
		return "end-of-list(0x0004)"
	case EndOfList01:
		return "end-of-list(0x0001)"
	default:
		return fmt.Sprintf("terminator(0x%04x)", uint16(t))
	}
}

// Compression is the per-file compression flag.
type Compression uint16

const (
	Stored   Compression = 0
	Deflated Compression = 1
)

func (c Compression) String() string {
	switch c {
	case Stored:
		return "stored"
	case Deflated:
		return "deflated"
	default:
		return fmt.Sprintf("compression(%d)", uint16(c))
	}
}

// FileEntry is one decoded file record.
type FileEntry struct {
	Name             string
	SourceOffset     uint32 // offset into Archive.Data
	DecompressedSize uint32
	Compression      Compression
	CompressedSize   uint32 // bytes to read from Archive.Data

	Marker   uint16    // leading 2 bytes, usually zero
	Reserved [3]uint32 // the 4-byte fields after offset, size and compressed size
}

// End returns SourceOffset+CompressedSize without overflowing.
func (e FileEntry) End() uint64 {
	return uint64(e.SourceOffset) + uint64(e.CompressedSize)
}

func (e FileEntry) String() string {
	s := fmt.Sprintf("@%08x: %q actual: %s, compressed: %d",
		e.SourceOffset, e.Name, units.HumanSize(uint64(e.DecompressedSize)), e.CompressedSize)
	if e.Compression == Deflated {
		s += " (zipped)"
	}
	return s
}

func (e FileEntry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", e.Name),
		slog.String("offset", fmt.Sprintf("0x%08x", e.SourceOffset)),
		slog.String("size", units.HumanSize(uint64(e.DecompressedSize))),
		slog.Uint64("compressed_size", uint64(e.CompressedSize)),
		slog.String("compression", e.Compression.String()),
	)
}
