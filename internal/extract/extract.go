// Package extract writes the files of a parsed pak archive to a filesystem.
package extract

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ossyrian/pakparse/internal/pak"
)

// Stats counts what an Extractor has done so far.
type Stats struct {
	Directories int
	Files       int
	Failed      int // files skipped because writing them failed
	Bytes       uint64
}

// Extractor mirrors an archive's directories and files under a root
// directory. It implements parser.Visitor.
type Extractor struct {
	fs     afero.Fs
	root   string
	data   []byte
	dryRun bool
	logger *slog.Logger
	stats  Stats
}

// Options configures an Extractor.
type Options struct {
	// DryRun decodes and inflates every file but writes nothing.
	DryRun bool
}

// New returns an Extractor that reads payloads from a.Data and writes them
// below root on fs.
func New(fs afero.Fs, root string, a *pak.Archive, opts Options, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		fs:     fs,
		root:   root,
		data:   a.Data,
		dryRun: opts.DryRun,
		logger: logger,
	}
}

// Stats returns the counters collected so far.
func (x *Extractor) Stats() Stats { return x.stats }

// VisitDirectory creates the output directory for dir if it does not exist.
func (x *Extractor) VisitDirectory(dir *pak.Directory) error {
	path, err := x.dirPath(dir.Name)
	if err != nil {
		return err
	}

	x.stats.Directories++
	if x.dryRun {
		return nil
	}

	// MkdirAll succeeds when the directory already exists, so archives that
	// share an output root can be extracted concurrently.
	if err := x.fs.MkdirAll(path, 0o755); err != nil {
		return pak.IOError("create directory "+path, err)
	}
	return nil
}

// VisitFile extracts entry into dir's output directory. Payload errors abort
// the archive; a failed write is logged and only skips this file.
func (x *Extractor) VisitFile(dir *pak.Directory, entry pak.FileEntry) error {
	content, err := Content(x.data, entry)
	if err != nil {
		return err
	}

	path, err := x.filePath(dir.Name, entry.Name)
	if err != nil {
		return err
	}

	if x.dryRun {
		x.stats.Files++
		return nil
	}

	if err := x.write(path, content); err != nil {
		x.stats.Failed++
		x.logger.Error("failed to write file",
			"path", path,
			"kind", pak.KindOf(err),
			"error", err,
		)
		return nil
	}

	x.stats.Files++
	x.stats.Bytes += uint64(len(content))
	return nil
}

func (x *Extractor) write(path string, content []byte) error {
	if err := x.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pak.IOError("create directory "+filepath.Dir(path), err)
	}
	if err := afero.WriteFile(x.fs, path, content, 0o644); err != nil {
		return pak.IOError("write "+path, err)
	}
	return nil
}

func (x *Extractor) dirPath(name string) (string, error) {
	if name == "" {
		return x.root, nil
	}
	rel, err := localName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(x.root, rel), nil
}

func (x *Extractor) filePath(dirName, name string) (string, error) {
	dir, err := x.dirPath(dirName)
	if err != nil {
		return "", err
	}
	rel, err := localName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, rel), nil
}

// localName turns an archive name, which may use either slash, into a
// relative OS path that stays below its parent.
func localName(name string) (string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if !filepath.IsLocal(rel) {
		return "", pak.FormatError("resolve output path", -1,
			fmt.Errorf("name %q escapes the output directory", name))
	}
	return rel, nil
}
