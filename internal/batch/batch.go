// Package batch extracts a list of independent pak archives.
package batch

import (
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/remeh/sizedwaitgroup"
	"github.com/spf13/afero"

	"github.com/ossyrian/pakparse/internal/extract"
	"github.com/ossyrian/pakparse/internal/pak"
	"github.com/ossyrian/pakparse/internal/parser"
	"github.com/ossyrian/pakparse/internal/units"
)

// Options configures a Runner.
type Options struct {
	OutputDir string
	CodePage  *pak.CodePage
	// Jobs is the number of archives processed at once; values below 1 mean 1.
	Jobs   int
	DryRun bool
}

// Result is the outcome of extracting one archive.
type Result struct {
	Path  string
	Root  string
	Table *pak.Table // nil if the directory table could not be read
	Stats extract.Stats
	Err   error
}

// Summary aggregates the results of a run.
type Summary struct {
	Archives    int
	Failed      int
	Files       int
	FailedFiles int
	Bytes       uint64
}

// Runner extracts archives from and to an afero filesystem.
type Runner struct {
	fs     afero.Fs
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	summary Summary
}

// NewRunner returns a Runner.
func NewRunner(fs afero.Fs, opts Options, logger *slog.Logger) *Runner {
	if opts.CodePage == nil {
		opts.CodePage = pak.Windows1250
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{fs: fs, opts: opts, logger: logger}
}

// Run extracts every archive in paths. A failing archive is logged and does
// not stop the others.
func (r *Runner) Run(paths []string) Summary {
	wg := sizedwaitgroup.New(r.opts.Jobs)
	for _, path := range paths {
		wg.Add()
		go func(path string) {
			defer wg.Done()
			r.record(r.ExtractArchive(path))
		}(path)
	}
	wg.Wait()

	r.mu.Lock()
	s := r.summary
	r.mu.Unlock()

	r.logger.Info("done",
		"archives", humanize.Comma(int64(s.Archives)),
		"failed_archives", humanize.Comma(int64(s.Failed)),
		"files", humanize.Comma(int64(s.Files)),
		"failed_files", humanize.Comma(int64(s.FailedFiles)),
		"written", units.HumanSize(s.Bytes),
	)

	return s
}

// ExtractArchive parses and extracts a single archive.
func (r *Runner) ExtractArchive(path string) Result {
	res := Result{
		Path: path,
		Root: OutputRoot(r.opts.OutputDir, path),
	}
	logger := r.logger.With("file", path)

	f, err := r.fs.Open(path)
	if err != nil {
		res.Err = pak.IOError("open archive", err)
		return res
	}
	defer f.Close()

	var ex *extract.Extractor
	res.Table, res.Err = parser.Parse(path, f, r.opts.CodePage, r.logger,
		func(a *pak.Archive) (parser.Visitor, error) {
			ex = extract.New(r.fs, res.Root, a, extract.Options{DryRun: r.opts.DryRun}, logger)
			return ex, nil
		})
	if ex != nil {
		res.Stats = ex.Stats()
	}

	return res
}

func (r *Runner) record(res Result) {
	if res.Err != nil {
		r.logger.Error("failed to extract archive",
			"archive", res.Path,
			"kind", pak.KindOf(res.Err).String(),
			"error", res.Err,
		)
	} else {
		r.logger.Info("extracted archive",
			"archive", res.Path,
			"output", res.Root,
			"files", humanize.Comma(int64(res.Stats.Files)),
			"written", units.HumanSize(res.Stats.Bytes),
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Archives++
	if res.Err != nil {
		r.summary.Failed++
	}
	r.summary.Files += res.Stats.Files
	r.summary.FailedFiles += res.Stats.Failed
	r.summary.Bytes += res.Stats.Bytes
}
