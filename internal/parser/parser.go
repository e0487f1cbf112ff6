package parser

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/ossyrian/pakparse/internal/pak"
	"github.com/ossyrian/pakparse/internal/units"
)

// PakReader reads the header and directory table of a pak file.
type PakReader struct {
	path     string
	file     io.ReadSeeker
	codePage *pak.CodePage
	logger   *slog.Logger
}

// NewPakReader returns a reader for file. path is only used for logging and
// is recorded in the returned Archive.
func NewPakReader(path string, file io.ReadSeeker, cp *pak.CodePage, logger *slog.Logger) *PakReader {
	if cp == nil {
		cp = pak.Windows1250
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PakReader{
		path:     path,
		file:     file,
		codePage: cp,
		logger:   logger,
	}
}

// ReadArchive reads the fixed header and buffers the data and directory
// segments. The whole file ends up in memory.
func (r *PakReader) ReadArchive() (*pak.Archive, error) {
	size, err := r.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, pak.IOError("determine file size", err)
	}
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return nil, pak.IOError("seek to header", err)
	}

	if size < pak.HeaderSize {
		return nil, pak.FormatError("read header", 0,
			fmt.Errorf("file is %d bytes, header needs %d", size, pak.HeaderSize))
	}

	raw := make([]byte, pak.HeaderSize)
	if _, err := io.ReadFull(r.file, raw); err != nil {
		return nil, pak.IOError("read header", err)
	}

	a := &pak.Archive{
		Path:      r.path,
		TotalSize: size,
	}
	a.Header.DirectoryOffset = binary.LittleEndian.Uint32(raw)
	copy(a.Header.Reserved[:], raw[4:])

	dirOffset := int64(a.Header.DirectoryOffset)
	if dirOffset < pak.HeaderSize {
		return nil, pak.FormatError("read header", 0,
			fmt.Errorf("directory offset %d is inside the %d-byte header", dirOffset, pak.HeaderSize))
	}
	if dirOffset > size {
		return nil, pak.FormatError("read header", 0,
			fmt.Errorf("directory offset %d is past end of file (%d bytes)", dirOffset, size))
	}
	a.DirectorySize = size - dirOffset

	a.Data = make([]byte, dirOffset-pak.HeaderSize)
	if _, err := io.ReadFull(r.file, a.Data); err != nil {
		return nil, pak.IOError("read data segment", err)
	}

	a.Directory = make([]byte, a.DirectorySize)
	if _, err := io.ReadFull(r.file, a.Directory); err != nil {
		return nil, pak.IOError("read directory segment", err)
	}

	r.logger.Debug("header label", "label", a.Header.Label())
	r.logger.Info("header is valid",
		"directory_offset", a.Header.DirectoryOffset,
		"directory_size", units.HumanSize(uint64(a.DirectorySize)),
		"data_size", units.HumanSize(uint64(len(a.Data))),
	)

	return a, nil
}

// VisitorFactory builds the visitor for an archive once both of its
// segments are buffered.
type VisitorFactory func(a *pak.Archive) (Visitor, error)

// Parse reads the archive in file and walks its directory table, handing
// every directory and file record to the visitor built by newVisitor.
func Parse(path string, file io.ReadSeeker, cp *pak.CodePage, logger *slog.Logger, newVisitor VisitorFactory) (*pak.Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("file", path)

	logger.Info("starting")

	reader := NewPakReader(path, file, cp, logger)

	archive, err := reader.ReadArchive()
	if err != nil {
		return nil, err
	}

	visitor, err := newVisitor(archive)
	if err != nil {
		return nil, err
	}

	return reader.ReadDirectories(archive, visitor)
}
