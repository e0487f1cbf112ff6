package parser

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ossyrian/pakparse/internal/logging"
	"github.com/ossyrian/pakparse/internal/pak"
)

// Visitor receives directories and file records in on-disk order.
// A non-nil error stops the walk.
type Visitor interface {
	VisitDirectory(dir *pak.Directory) error
	VisitFile(dir *pak.Directory, entry pak.FileEntry) error
}

// dirState is the position of the walk within one directory block.
type dirState int

const (
	readingName dirState = iota
	readingRecordsOrEnd
	done
)

// ReadDirectories walks the directory segment of a.
//
//	[preamble 25 bytes][count u16]
//	count x { [name cstring] { [record] }* [terminator u16] }
//
// A directory's file list has no length; it runs until the next two bytes
// are one of the known terminators.
func (r *PakReader) ReadDirectories(a *pak.Archive, v Visitor) (*pak.Table, error) {
	c := pak.NewCursor(a.Directory)
	t := &pak.Table{}

	preamble, err := c.Bytes(pak.PreambleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory preamble: %w", err)
	}
	copy(t.Preamble[:], preamble)

	if t.DirectoryCount, err = c.Uint16(); err != nil {
		return nil, fmt.Errorf("failed to read directory count: %w", err)
	}

	r.logger.Debug("reading directories", "directory_count", t.DirectoryCount)

	var dir *pak.Directory
	state := readingName
	if t.DirectoryCount == 0 {
		state = done
	}

	for state != done {
		switch state {
		case readingName:
			index := len(t.Directories)
			name, err := c.CString(r.codePage)
			if err != nil {
				return nil, fmt.Errorf("failed to read name of directory #%d: %w", index+1, err)
			}

			t.Directories = append(t.Directories, pak.Directory{Index: index, Name: name})
			dir = &t.Directories[index]

			r.logger.Info("directory", "index", index+1, "name", name)

			if err := v.VisitDirectory(dir); err != nil {
				return nil, fmt.Errorf("directory %q: %w", name, err)
			}
			state = readingRecordsOrEnd

		case readingRecordsOrEnd:
			lookahead, err := c.Peek(pak.MarkerSize)
			if err != nil {
				return nil, fmt.Errorf("directory %q: file list is not terminated: %w", dir.Name, err)
			}

			if end, ok := pak.AsTerminator(binary.LittleEndian.Uint16(lookahead)); ok {
				// the terminator belongs to this directory; a well-formed
				// segment ends right after the last directory's terminator
				if err := c.Skip(pak.MarkerSize); err != nil {
					return nil, err
				}
				dir.End = end

				r.logger.Debug("end of directory",
					"name", dir.Name,
					"files", len(dir.Files),
					"terminator", end,
				)

				if len(t.Directories) == int(t.DirectoryCount) {
					state = done
				} else {
					state = readingName
				}
				continue
			}

			entry, err := DecodeFileRecord(c, r.codePage)
			if err != nil {
				return nil, fmt.Errorf("directory %q: %w", dir.Name, err)
			}
			dir.Files = append(dir.Files, entry)

			r.logger.Info(entry.String())
			r.logger.Log(context.Background(), logging.LevelTrace, "file record fields",
				"entry", entry,
				"marker", entry.Marker,
				"reserved", entry.Reserved,
			)

			if err := v.VisitFile(dir, entry); err != nil {
				return nil, fmt.Errorf("directory %q: %s: %w", dir.Name, entry.Name, err)
			}
		}
	}

	t.Trailing = c.Remaining()
	if t.Trailing > 0 {
		r.logger.Warn("unconsumed bytes after last directory",
			"trailing", t.Trailing,
			"offset", c.Pos(),
		)
	}

	r.logger.Info("read directories",
		"directory_count", t.DirectoryCount,
		"files", t.FileCount(),
	)

	return t, nil
}
