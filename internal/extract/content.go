package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/ossyrian/pakparse/internal/pak"
)

// Content returns the final bytes of e, read from the archive's data segment.
// Stored payloads are returned as-is (aliasing data); deflated payloads are
// inflated and must come out at exactly e.DecompressedSize bytes.
func Content(data []byte, e pak.FileEntry) ([]byte, error) {
	if e.End() > uint64(len(data)) {
		return nil, pak.BoundsError("slice payload", int64(e.SourceOffset),
			fmt.Errorf("offset %d + size %d exceeds data segment of %d bytes",
				e.SourceOffset, e.CompressedSize, len(data)))
	}
	raw := data[e.SourceOffset:e.End()]

	switch e.Compression {
	case pak.Stored:
		return raw, nil
	case pak.Deflated:
		return inflate(raw, e.DecompressedSize)
	default:
		return nil, pak.FormatError("read payload", int64(e.SourceOffset),
			fmt.Errorf("unknown compression flag %d", uint16(e.Compression)))
	}
}

func inflate(raw []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, pak.DecompressionError("open zlib stream", err)
	}
	defer zr.Close()

	// one byte past the expected size is enough to detect oversized streams
	out, err := io.ReadAll(io.LimitReader(zr, int64(size)+1))
	if err != nil {
		return nil, pak.DecompressionError("inflate", err)
	}
	if len(out) != int(size) {
		return nil, pak.DecompressionError("inflate",
			fmt.Errorf("inflated to %d bytes, expected %d", len(out), size))
	}

	return out, nil
}
