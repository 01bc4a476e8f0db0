package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultBaseDir is used when neither the CLI nor the configuration names
// a base directory.
const DefaultBaseDir = "Export"

// Allocation is a created artifact directory.
type Allocation struct {
	Path string    // base/R<rev>/<date>/<subfolder>[-<seq>]
	Date time.Time // the date the path was derived from
}

// File returns the path of name inside the allocation.
func (a Allocation) File(name string) string {
	return filepath.Join(a.Path, name)
}

// Dir returns the allocation path with a trailing separator, for tools
// that concatenate bare filenames onto their output argument.
func (a Allocation) Dir() string {
	return a.Path + string(filepath.Separator)
}

// Allocator derives versioned artifact directories.
type Allocator struct {
	// Now returns the current time. nil means time.Now.
	Now func() time.Time
	// DryRun computes paths without creating directories.
	DryRun bool
}

func (a *Allocator) now() time.Time {
	if a != nil && a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// BaseDir picks the base directory: the CLI value wins over the configured
// one when non-empty.
func BaseDir(configBase, cliBase string) string {
	switch {
	case cliBase != "":
		return cliBase
	case configBase != "":
		return configBase
	default:
		return DefaultBaseDir
	}
}

// RevisionDir returns base/R<revision>, the subtree removed by a clean run.
func RevisionDir(configBase, cliBase, revision string) string {
	return filepath.Join(BaseDir(configBase, cliBase), "R"+revision)
}

// Allocate returns base/R<revision>/<YYYY-MM-DD>/<subfolder>, creating
// every missing segment. When the directory already exists it is reused
// if overwrite is set; otherwise the first free "<subfolder>-<seq>"
// sibling is created and returned.
func (a *Allocator) Allocate(configBase, cliBase, subfolder, revision string, overwrite bool) (Allocation, error) {
	now := a.now()
	dateDir := filepath.Join(RevisionDir(configBase, cliBase, revision), DirStamp(now))
	if err := a.mkdir(dateDir); err != nil {
		return Allocation{}, err
	}

	path := filepath.Clean(filepath.Join(dateDir, subfolder))
	exists, err := dirExists(path)
	if err != nil {
		return Allocation{}, err
	}

	if exists && !overwrite {
		name := NextFreeName(func(n string) bool {
			ok, _ := dirExists(filepath.Join(dateDir, n))
			return ok
		}, func(seq int) string {
			return subfolder + "-" + strconv.Itoa(seq)
		})
		path = filepath.Join(dateDir, name)
		exists = false
	}

	if !exists {
		if err := a.mkdir(path); err != nil {
			return Allocation{}, err
		}
	}

	return Allocation{Path: path, Date: now}, nil
}

func (a *Allocator) mkdir(path string) error {
	if a != nil && a.DryRun {
		return nil
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("create artifact directory %q: %w", path, err)
	}
	return nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, fmt.Errorf("artifact path %q exists and is not a directory", path)
		}
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %q: %w", path, err)
	}
}
