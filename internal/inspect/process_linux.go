//go:build linux

package inspect

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// commLen is the longest name the kernel keeps in /proc/<pid>/comm.
const commLen = 15

// Process is an attached process.
type Process struct {
	Pid  int
	Name string
}

// Attach finds a running process by executable name. Processes started
// through wine are matched on the Windows path in their argv[0].
// The calling process is never returned.
func Attach(name string) (*Process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	self := os.Getpid()
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() || pid == self {
			continue
		}
		if matchProcess(pid, name) {
			return &Process{Pid: pid, Name: name}, nil
		}
	}

	return nil, fmt.Errorf("process %q not found", name)
}

func matchProcess(pid int, name string) bool {
	dir := filepath.Join("/proc", strconv.Itoa(pid))

	if comm, err := os.ReadFile(filepath.Join(dir, "comm")); err == nil {
		want := name
		if len(want) > commLen {
			want = want[:commLen]
		}
		if strings.EqualFold(strings.TrimSpace(string(comm)), want) {
			return true
		}
	}

	cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline"))
	if err != nil || len(cmdline) == 0 {
		return false
	}
	return matchExecutable(cmdline, name)
}

// matchExecutable reports whether argv[0] of a NUL-separated command line
// names the executable. Later arguments are ignored.
func matchExecutable(cmdline []byte, name string) bool {
	argv0, _, _ := bytes.Cut(cmdline, []byte{0})
	if len(argv0) == 0 {
		return false
	}
	exe := strings.ReplaceAll(string(argv0), `\`, "/")
	return strings.EqualFold(path.Base(exe), name)
}

// ReadAt reads len(b) bytes at addr in the process's address space.
func (p *Process) ReadAt(b []byte, addr uint64) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	local := []unix.Iovec{{Base: &b[0]}}
	local[0].SetLen(len(b))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(b)}}

	n, err := unix.ProcessVMReadv(p.Pid, local, remote, 0)
	if err != nil {
		return n, fmt.Errorf("pid %d: read %d bytes at 0x%x: %w", p.Pid, len(b), addr, err)
	}
	return n, nil
}

// ReadUint32 reads a little-endian uint32 at addr.
func (p *Process) ReadUint32(addr uint64) (uint32, error) {
	return ReadUint32(p, addr)
}

// ReadBytesUntil returns the bytes from addr up to the first sentinel.
func (p *Process) ReadBytesUntil(addr uint64, sentinels []byte, limit int) ([]byte, error) {
	return ReadBytesUntil(p, addr, sentinels, limit)
}
