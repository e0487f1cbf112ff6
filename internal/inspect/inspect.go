// Package inspect reads strings out of a running game process.
//
// The game keeps the text it is about to display in a heap buffer whose
// address is stored in a structure at a fixed location. The buffer has no
// length; it ends at the first of a small set of sentinel bytes.
package inspect

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ossyrian/pakparse/internal/pak"
)

// ErrUnsupported is returned where no process memory reader is available.
var ErrUnsupported = errors.New("process memory inspection is not supported on this platform")

// pageSize bounds single reads so a scan never spans into an unmapped page
// it does not need.
const pageSize = 4096

// Memory is read access to another address space.
type Memory interface {
	ReadAt(p []byte, addr uint64) (int, error)
}

// Target locates the string buffer inside the process.
type Target struct {
	StructAddr   uint64
	BufferOffset uint64
	Sentinels    []byte
	MaxLength    int
}

// Defaults match Rebels.exe.
const (
	DefaultProcess      = "Rebels.exe"
	DefaultStructAddr   = 0x6d9100
	DefaultBufferOffset = (3 - 1) * 4
	DefaultMaxLength    = 64 * 1024
)

// DefaultSentinels end the string buffer.
var DefaultSentinels = []string{"0x0D", "0xF0", "0xAD", "0xBA"}

// ReadUint32 reads a little-endian uint32 at addr.
func ReadUint32(m Memory, addr uint64) (uint32, error) {
	var b [4]byte
	n, err := m.ReadAt(b[:], addr)
	if err != nil {
		return 0, fmt.Errorf("failed to read uint32 at 0x%x: %w", addr, err)
	}
	if n != len(b) {
		return 0, fmt.Errorf("failed to read uint32 at 0x%x: short read of %d bytes", addr, n)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadBytesUntil scans forward from addr and returns the bytes before the
// first byte found in sentinels. At most limit bytes are returned; if no
// sentinel shows up by then the scan fails.
func ReadBytesUntil(m Memory, addr uint64, sentinels []byte, limit int) ([]byte, error) {
	if len(sentinels) == 0 {
		return nil, errors.New("no sentinel bytes given")
	}
	if limit <= 0 {
		limit = DefaultMaxLength
	}

	var stop [256]bool
	for _, s := range sentinels {
		stop[s] = true
	}

	start := addr
	scanMax := limit + 1 // room for the sentinel itself
	buf := make([]byte, pageSize)
	var out []byte

	for len(out) < scanMax {
		n := pageSize - int(addr%pageSize)
		if rem := scanMax - len(out); n > rem {
			n = rem
		}

		got, err := m.ReadAt(buf[:n], addr)
		for i := 0; i < got; i++ {
			if stop[buf[i]] {
				return append(out, buf[:i]...), nil
			}
		}
		out = append(out, buf[:got]...)

		if err != nil {
			return nil, fmt.Errorf("failed to scan string at 0x%x: %w", start, err)
		}
		if got == 0 {
			return nil, fmt.Errorf("failed to scan string at 0x%x: empty read at 0x%x", start, addr)
		}
		addr += uint64(got)
	}

	return nil, fmt.Errorf("no sentinel within %d bytes of 0x%x", limit, start)
}

// Trace follows the buffer pointer described by t and decodes the string it
// points to through cp.
func Trace(m Memory, t Target, cp *pak.CodePage) (string, error) {
	if cp == nil {
		cp = pak.Windows1250
	}

	ptr, err := ReadUint32(m, t.StructAddr+t.BufferOffset)
	if err != nil {
		return "", fmt.Errorf("failed to read buffer pointer: %w", err)
	}

	raw, err := ReadBytesUntil(m, uint64(ptr), t.Sentinels, t.MaxLength)
	if err != nil {
		return "", err
	}

	return cp.Decode(raw), nil
}

// ParseSentinels parses byte values such as "0x0D", "13" or "0o15".
func ParseSentinels(values []string) ([]byte, error) {
	out := make([]byte, 0, len(values))
	for _, v := range values {
		for _, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			b, err := strconv.ParseUint(field, 0, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid sentinel %q: %w", field, err)
			}
			out = append(out, byte(b))
		}
	}
	return out, nil
}
