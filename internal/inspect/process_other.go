//go:build !linux

package inspect

// Process is an attached process.
type Process struct {
	Pid  int
	Name string
}

// Attach is not available on this platform.
func Attach(name string) (*Process, error) {
	return nil, ErrUnsupported
}

func (p *Process) ReadAt(b []byte, addr uint64) (int, error) {
	return 0, ErrUnsupported
}

func (p *Process) ReadUint32(addr uint64) (uint32, error) {
	return ReadUint32(p, addr)
}

func (p *Process) ReadBytesUntil(addr uint64, sentinels []byte, limit int) ([]byte, error) {
	return ReadBytesUntil(p, addr, sentinels, limit)
}
