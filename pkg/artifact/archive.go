package artifact

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter selects the files written into an archive. A file matches when its
// extension is in Exts, its base name is in Names, or its slash-separated
// path relative to the archived directory matches one of the doublestar
// Patterns. An empty filter matches nothing.
type Filter struct {
	Exts      []string
	Names     []string
	Patterns  []string
	Recursive bool
	// SkipDirs are absolute directory paths that are never descended into.
	SkipDirs []string
}

// Match reports whether rel, a path relative to the archived directory, is
// selected.
func (f Filter) Match(rel string) bool {
	base := filepath.Base(rel)
	if hasExt(base, f.Exts) {
		return true
	}
	for _, n := range f.Names {
		if n == base {
			return true
		}
	}
	slashed := filepath.ToSlash(rel)
	for _, p := range f.Patterns {
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
	}
	return false
}

// Archive writes the files of dir selected by filter into dir/zipName,
// never including the archive itself. It returns the number of files
// written. No archive is created when nothing matches.
func Archive(dir, zipName string, filter Filter) (int, error) {
	return ArchiveTo(dir, filepath.Join(dir, zipName), filter)
}

// ArchiveTo is Archive with an explicit archive path, which may live
// outside dir.
func ArchiveTo(dir, zipPath string, filter Filter) (int, error) {
	files, err := collect(dir, zipPath, filter)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("create archive %q: %w", zipPath, err)
	}
	zw := zip.NewWriter(out)

	written := 0
	for _, rel := range files {
		if err := addFile(zw, dir, rel); err != nil {
			zw.Close()
			out.Close()
			os.Remove(zipPath)
			return 0, err
		}
		written++
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return 0, fmt.Errorf("finalize archive %q: %w", zipPath, err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close archive %q: %w", zipPath, err)
	}
	return written, nil
}

// ArchiveNext archives into dir/<base>-<seq>.zip using the first sequence
// number not taken yet, so earlier archives of the same day survive. It
// returns the archive path and the number of files written.
func ArchiveNext(dir, base string, filter Filter) (string, int, error) {
	return ArchiveNextTo(dir, dir, base, filter)
}

// ArchiveNextTo is ArchiveNext with the archive written to destDir, which
// may differ from the archived dir.
func ArchiveNextTo(dir, destDir, base string, filter Filter) (string, int, error) {
	name := NextFreeName(func(n string) bool {
		_, err := os.Stat(filepath.Join(destDir, n))
		return err == nil
	}, func(seq int) string {
		return base + "-" + strconv.Itoa(seq) + ".zip"
	})

	zipPath := filepath.Join(destDir, name)
	n, err := ArchiveTo(dir, zipPath, filter)
	if err != nil {
		return "", 0, err
	}
	if n == 0 {
		return "", 0, nil
	}
	return zipPath, n, nil
}

func collect(dir, zipPath string, filter Filter) ([]string, error) {
	absZip, err := filepath.Abs(zipPath)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(filter.SkipDirs))
	for _, d := range filter.SkipDirs {
		if abs, err := filepath.Abs(d); err == nil {
			skip[abs] = struct{}{}
		}
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if _, ok := skip[abs]; ok || !filter.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || abs == absZip {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if filter.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", dir, err)
	}
	return files, nil
}

func addFile(zw *zip.Writer, dir, rel string) error {
	path := filepath.Join(dir, rel)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %q: %w", path, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header %q: %w", rel, err)
	}
	hdr.Name = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip entry %q: %w", rel, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("zip %q: %w", rel, err)
	}
	return nil
}
