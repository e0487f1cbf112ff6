// Package paktest builds pak archives in memory for tests.
package paktest

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zlib"

	"github.com/ossyrian/pakparse/internal/pak"
)

// File describes one file to place in the archive.
type File struct {
	Name    string
	Content []byte
	Deflate bool

	// Edit, if set, can change the encoded record after offsets and sizes
	// have been computed.
	Edit func(e *pak.FileEntry)
}

// Dir describes one directory. End defaults to pak.EndOfList04.
type Dir struct {
	Name  string
	Files []File
	End   pak.Terminator
}

// Builder assembles a complete pak file.
type Builder struct {
	Label    string // written into header bytes [4,17)
	Dirs     []Dir
	Trailing []byte // appended after the last directory
}

// Bytes encodes the archive.
func (b *Builder) Bytes() []byte {
	var data bytes.Buffer
	var dir bytes.Buffer

	dir.Write(make([]byte, pak.PreambleSize))
	binary.Write(&dir, binary.LittleEndian, uint16(len(b.Dirs)))

	for _, d := range b.Dirs {
		dir.WriteString(d.Name)
		dir.WriteByte(0)

		for _, f := range d.Files {
			payload := f.Content
			flag := pak.Stored
			if f.Deflate {
				payload = Deflate(f.Content)
				flag = pak.Deflated
			}

			e := pak.FileEntry{
				Name:             f.Name,
				SourceOffset:     uint32(data.Len()),
				DecompressedSize: uint32(len(f.Content)),
				Compression:      flag,
				CompressedSize:   uint32(len(payload)),
			}
			data.Write(payload)

			if f.Edit != nil {
				f.Edit(&e)
			}
			WriteRecord(&dir, e)
		}

		end := d.End
		if end == 0 {
			end = pak.EndOfList04
		}
		binary.Write(&dir, binary.LittleEndian, uint16(end))
	}
	dir.Write(b.Trailing)

	return Assemble(b.Label, data.Bytes(), dir.Bytes())
}

// Assemble joins a header, the data segment and a raw directory segment.
func Assemble(label string, data, directory []byte) []byte {
	var out bytes.Buffer

	header := make([]byte, pak.HeaderSize)
	binary.LittleEndian.PutUint32(header, uint32(pak.HeaderSize+len(data)))
	copy(header[4:pak.LabelSize-1], label)

	out.Write(header)
	out.Write(data)
	out.Write(directory)
	return out.Bytes()
}

// WriteRecord encodes a single file record.
func WriteRecord(buf *bytes.Buffer, e pak.FileEntry) {
	binary.Write(buf, binary.LittleEndian, e.Marker)
	buf.WriteString(e.Name)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, e.SourceOffset)
	binary.Write(buf, binary.LittleEndian, e.Reserved[0])
	binary.Write(buf, binary.LittleEndian, e.DecompressedSize)
	binary.Write(buf, binary.LittleEndian, e.Reserved[1])
	binary.Write(buf, binary.LittleEndian, uint16(e.Compression))
	binary.Write(buf, binary.LittleEndian, e.CompressedSize)
	binary.Write(buf, binary.LittleEndian, e.Reserved[2])
}

// Deflate returns data as a zlib stream.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}
