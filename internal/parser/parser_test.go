package parser_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/ossyrian/pakparse/internal/logging"
	"github.com/ossyrian/pakparse/internal/pak"
	"github.com/ossyrian/pakparse/internal/paktest"
	"github.com/ossyrian/pakparse/internal/parser"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newReader(input []byte) *parser.PakReader {
	return parser.NewPakReader("test.pak", bytes.NewReader(input), pak.Windows1250, discard)
}

// buildHeader returns a 25-byte header pointing at dirOffset.
func buildHeader(dirOffset uint32) []byte {
	h := make([]byte, pak.HeaderSize)
	binary.LittleEndian.PutUint32(h, dirOffset)
	copy(h[4:], "PAKv1")
	return h
}

func TestPakReader_ReadArchive(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantData []byte
		wantDir  []byte
		wantKind pak.ErrKind
		errMsg   string
	}{
		{
			name:     "header only",
			input:    buildHeader(pak.HeaderSize),
			wantData: []byte{},
			wantDir:  []byte{},
		},
		{
			name:     "data and directory segments",
			input:    append(append(buildHeader(pak.HeaderSize+3), 'a', 'b', 'c'), 'd', 'e'),
			wantData: []byte("abc"),
			wantDir:  []byte("de"),
		},
		{
			name:     "directory offset at end of file",
			input:    append(buildHeader(pak.HeaderSize+2), 'x', 'y'),
			wantData: []byte("xy"),
			wantDir:  []byte{},
		},
		{
			name:     "empty input",
			input:    []byte{},
			wantKind: pak.KindFormat,
			errMsg:   "header needs 25",
		},
		{
			name:     "truncated header",
			input:    buildHeader(pak.HeaderSize)[:10],
			wantKind: pak.KindFormat,
			errMsg:   "header needs 25",
		},
		{
			name:     "directory offset inside header",
			input:    buildHeader(10),
			wantKind: pak.KindFormat,
			errMsg:   "inside the 25-byte header",
		},
		{
			name:     "directory offset past end of file",
			input:    append(buildHeader(100), make([]byte, 10)...),
			wantKind: pak.KindFormat,
			errMsg:   "past end of file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newReader(tt.input).ReadArchive()

			if tt.wantKind != 0 {
				if err == nil {
					t.Fatal("ReadArchive() succeeded unexpectedly, wanted error")
				}
				if k := pak.KindOf(err); k != tt.wantKind {
					t.Errorf("ReadArchive() error kind = %v, want %v", k, tt.wantKind)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ReadArchive() error = %v, should contain %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("ReadArchive() failed: %v", err)
			}
			if !bytes.Equal(got.Data, tt.wantData) {
				t.Errorf("Data = %q, want %q", got.Data, tt.wantData)
			}
			if !bytes.Equal(got.Directory, tt.wantDir) {
				t.Errorf("Directory = %q, want %q", got.Directory, tt.wantDir)
			}
			if got.TotalSize != int64(len(tt.input)) {
				t.Errorf("TotalSize = %d, want %d", got.TotalSize, len(tt.input))
			}
			if got.DirectorySize != int64(len(tt.wantDir)) {
				t.Errorf("DirectorySize = %d, want %d", got.DirectorySize, len(tt.wantDir))
			}
			if got.Path != "test.pak" {
				t.Errorf("Path = %q, want %q", got.Path, "test.pak")
			}
		})
	}
}

func TestHeader_Label(t *testing.T) {
	tests := []struct {
		reserved string
		want     string
	}{
		{"PAK\x01file\x00", "DCBAPAK.file....."},
		{"PAK\x7ffile\x80", "DCBAPAK\x7ffile....."},
		{"\x1f\x20", "DCBA. ..........."},
	}

	for _, tt := range tests {
		h := pak.Header{DirectoryOffset: 0x41424344}
		copy(h.Reserved[:], tt.reserved)

		if got := h.Label(); got != tt.want {
			t.Errorf("Label() with %q = %q, want %q", tt.reserved, got, tt.want)
		}
	}
}

func TestPakReader_ReadDirectories_TraceLog(t *testing.T) {
	b := &paktest.Builder{
		Dirs: []paktest.Dir{{
			Name:  "gui",
			Files: []paktest.File{{Name: "icon.bmp", Content: []byte("0123456789")}},
		}},
	}

	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: logging.LevelTrace}))
	r := parser.NewPakReader("test.pak", bytes.NewReader(b.Bytes()), pak.Windows1250, logger)

	a, err := r.ReadArchive()
	if err != nil {
		t.Fatalf("ReadArchive() failed: %v", err)
	}
	if _, err := r.ReadDirectories(a, &recorder{}); err != nil {
		t.Fatalf("ReadDirectories() failed: %v", err)
	}

	for _, want := range []string{`"entry":{"name":"icon.bmp"`, `"compression":"stored"`, `"size":"10 bytes"`} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("trace log does not contain %s:\n%s", want, out.String())
		}
	}
}

// recorder is a parser.Visitor that remembers what it was given.
type recorder struct {
	dirs  []string
	files map[string][]string
	err   error // returned from VisitFile when set
}

func (r *recorder) VisitDirectory(dir *pak.Directory) error {
	r.dirs = append(r.dirs, dir.Name)
	return nil
}

func (r *recorder) VisitFile(dir *pak.Directory, entry pak.FileEntry) error {
	if r.err != nil {
		return r.err
	}
	if r.files == nil {
		r.files = map[string][]string{}
	}
	r.files[dir.Name] = append(r.files[dir.Name], entry.Name)
	return nil
}

func readTable(t *testing.T, input []byte, v parser.Visitor) (*pak.Table, error) {
	t.Helper()

	r := newReader(input)
	a, err := r.ReadArchive()
	if err != nil {
		t.Fatalf("ReadArchive() failed: %v", err)
	}
	return r.ReadDirectories(a, v)
}

func TestPakReader_ReadDirectories(t *testing.T) {
	b := &paktest.Builder{
		Label: "PAK",
		Dirs: []paktest.Dir{
			{
				Name: "gui",
				Files: []paktest.File{
					{Name: "icon.bmp", Content: []byte("0123456789")},
					{Name: "menu.txt", Content: []byte("HELLO"), Deflate: true},
				},
			},
			{
				Name: "sounds",
				End:  pak.EndOfList01,
			},
			{
				Name:  "maps",
				Files: []paktest.File{{Name: "level1.map", Content: []byte{1, 2, 3}}},
			},
		},
	}

	rec := &recorder{}
	table, err := readTable(t, b.Bytes(), rec)
	if err != nil {
		t.Fatalf("ReadDirectories() failed: %v", err)
	}

	if table.DirectoryCount != 3 {
		t.Errorf("DirectoryCount = %d, want 3", table.DirectoryCount)
	}
	if len(table.Directories) != int(table.DirectoryCount) {
		t.Errorf("read %d directories, header says %d", len(table.Directories), table.DirectoryCount)
	}
	if table.Trailing != 0 {
		t.Errorf("Trailing = %d, want 0", table.Trailing)
	}
	if table.FileCount() != 3 {
		t.Errorf("FileCount() = %d, want 3", table.FileCount())
	}

	wantDirs := []string{"gui", "sounds", "maps"}
	if !reflect.DeepEqual(rec.dirs, wantDirs) {
		t.Errorf("visited directories %v, want %v", rec.dirs, wantDirs)
	}
	wantFiles := map[string][]string{
		"gui":  {"icon.bmp", "menu.txt"},
		"maps": {"level1.map"},
	}
	if !reflect.DeepEqual(rec.files, wantFiles) {
		t.Errorf("visited files %v, want %v", rec.files, wantFiles)
	}

	wantEnds := []pak.Terminator{pak.EndOfList04, pak.EndOfList01, pak.EndOfList04}
	for i, d := range table.Directories {
		if d.End != wantEnds[i] {
			t.Errorf("directory %q End = %v, want %v", d.Name, d.End, wantEnds[i])
		}
		if d.Index != i {
			t.Errorf("directory %q Index = %d, want %d", d.Name, d.Index, i)
		}
	}

	menu := table.Directories[0].Files[1]
	if menu.Compression != pak.Deflated || menu.DecompressedSize != 5 {
		t.Errorf("menu.txt = %+v, want deflated with decompressed size 5", menu)
	}
	if menu.SourceOffset != 10 {
		t.Errorf("menu.txt SourceOffset = %d, want 10", menu.SourceOffset)
	}
}

func TestPakReader_ReadDirectories_Trailing(t *testing.T) {
	b := &paktest.Builder{
		Dirs:     []paktest.Dir{{Name: "gui"}},
		Trailing: []byte{0xde, 0xad, 0xbe},
	}

	table, err := readTable(t, b.Bytes(), &recorder{})
	if err != nil {
		t.Fatalf("ReadDirectories() failed: %v", err)
	}
	if table.Trailing != 3 {
		t.Errorf("Trailing = %d, want 3", table.Trailing)
	}
}

func TestPakReader_ReadDirectories_NoDirectories(t *testing.T) {
	table, err := readTable(t, (&paktest.Builder{}).Bytes(), &recorder{})
	if err != nil {
		t.Fatalf("ReadDirectories() failed: %v", err)
	}
	if table.DirectoryCount != 0 || len(table.Directories) != 0 {
		t.Errorf("got %d/%d directories, want none", len(table.Directories), table.DirectoryCount)
	}
}

func TestPakReader_ReadDirectories_Errors(t *testing.T) {
	preamble := make([]byte, pak.PreambleSize)
	withCount := func(n uint16, rest ...byte) []byte {
		out := append([]byte{}, preamble...)
		out = binary.LittleEndian.AppendUint16(out, n)
		return append(out, rest...)
	}
	record := func(name string) []byte {
		var buf bytes.Buffer
		paktest.WriteRecord(&buf, pak.FileEntry{Name: name, CompressedSize: 0})
		return buf.Bytes()
	}

	tests := []struct {
		name      string
		directory []byte
		errMsg    string
	}{
		{
			name:      "empty segment",
			directory: nil,
			errMsg:    "directory preamble",
		},
		{
			name:      "missing count",
			directory: preamble,
			errMsg:    "directory count",
		},
		{
			name:      "unterminated directory name",
			directory: withCount(1, 'g', 'u', 'i'),
			errMsg:    "name of directory #1",
		},
		{
			name:      "fewer directories than counted",
			directory: withCount(2, append([]byte("gui\x00"), 0x04, 0x00)...),
			errMsg:    "name of directory #2",
		},
		{
			name:      "file list runs off the end",
			directory: withCount(1, append([]byte("gui\x00"), record("a.bin")...)...),
			errMsg:    "not terminated",
		},
		{
			name:      "truncated file record",
			directory: withCount(1, append([]byte("gui\x00"), record("a.bin")[:10]...)...),
			errMsg:    "source offset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := paktest.Assemble("", nil, tt.directory)

			_, err := readTable(t, input, &recorder{})
			if err == nil {
				t.Fatal("ReadDirectories() succeeded unexpectedly, wanted error")
			}
			if !errors.Is(err, pak.ErrFormat) {
				t.Errorf("ReadDirectories() error = %v, want a format error", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ReadDirectories() error = %v, should contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestPakReader_ReadDirectories_VisitorError(t *testing.T) {
	b := &paktest.Builder{
		Dirs: []paktest.Dir{{
			Name:  "gui",
			Files: []paktest.File{{Name: "a.bin", Content: []byte("a")}},
		}},
	}
	boom := errors.New("boom")

	_, err := readTable(t, b.Bytes(), &recorder{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("ReadDirectories() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "a.bin") {
		t.Errorf("error %v should name the file", err)
	}
}

func TestParse(t *testing.T) {
	b := &paktest.Builder{
		Dirs: []paktest.Dir{{
			Name:  "gui",
			Files: []paktest.File{{Name: "icon.bmp", Content: []byte("0123456789")}},
		}},
	}

	rec := &recorder{}
	var seen *pak.Archive
	table, err := parser.Parse("gui.pak", bytes.NewReader(b.Bytes()), nil, discard,
		func(a *pak.Archive) (parser.Visitor, error) {
			seen = a
			return rec, nil
		})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if seen == nil || !bytes.Equal(seen.Data, []byte("0123456789")) {
		t.Errorf("visitor factory did not get the data segment")
	}
	if table.FileCount() != 1 || rec.files["gui"][0] != "icon.bmp" {
		t.Errorf("Parse() visited %v", rec.files)
	}
}
