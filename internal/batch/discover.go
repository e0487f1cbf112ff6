package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// PakExt is the extension of archive files.
const PakExt = ".pak"

// Discover returns the archives to extract. If root is a file it is returned
// as-is; if it is a directory every *.pak below it is returned, sorted.
func Discover(fs afero.Fs, root string) ([]string, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), PakExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}

	slices.Sort(paths)
	return paths, nil
}

// OutputRoot returns the folder an archive is extracted into: outputDir
// joined with the name of the folder that contains the archive.
func OutputRoot(outputDir, archivePath string) string {
	archivePath = filepath.Clean(archivePath)
	parent := filepath.Base(filepath.Dir(archivePath))
	if parent == "." || parent == string(filepath.Separator) {
		base := filepath.Base(archivePath)
		parent = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(outputDir, parent)
}
