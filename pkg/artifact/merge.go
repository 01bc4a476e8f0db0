package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// Merger concatenates page-based documents in the given order into out and
// adds one table-of-contents entry per input.
type Merger interface {
	Merge(out string, inputs []string, titles []string) error
}

// PDFMerger merges PDF files with pdfcpu and adds a bookmark per source.
type PDFMerger struct{}

func (PDFMerger) Merge(out string, inputs []string, titles []string) error {
	starts := make([]int, len(inputs))
	page := 1
	for i, in := range inputs {
		n, err := api.PageCountFile(in)
		if err != nil {
			return fmt.Errorf("count pages of %q: %w", in, err)
		}
		starts[i] = page
		page += n
	}

	if err := api.MergeCreateFile(inputs, out, false, nil); err != nil {
		return fmt.Errorf("merge into %q: %w", out, err)
	}

	bms := make([]pdfcpu.Bookmark, 0, len(inputs))
	for i := range inputs {
		bms = append(bms, pdfcpu.Bookmark{PageFrom: starts[i], Title: titles[i]})
	}
	if err := api.AddBookmarksFile(out, "", bms, true, nil); err != nil {
		return fmt.Errorf("add bookmarks to %q: %w", out, err)
	}
	return nil
}

// Merge merges files (names inside dir, in caller order) into output with
// PDFMerger. See MergeWith.
func Merge(dir string, files []string, output string) (string, error) {
	return MergeWith(PDFMerger{}, dir, files, output)
}

// MergeWith merges files, in the given order, into dir/output. Table of
// contents titles are the source names without extension. Sources are
// deleted only after a successful merge. It returns the output path.
func MergeWith(m Merger, dir string, files []string, output string) (string, error) {
	if len(files) == 0 {
		return "", errors.New("merge: no input files")
	}

	inputs := make([]string, len(files))
	titles := make([]string, len(files))
	for i, f := range files {
		inputs[i] = filepath.Join(dir, f)
		if _, err := os.Stat(inputs[i]); err != nil {
			return "", fmt.Errorf("merge input: %w", err)
		}
		base := filepath.Base(f)
		titles[i] = strings.TrimSuffix(base, filepath.Ext(base))
	}

	out := filepath.Join(dir, output)
	if err := m.Merge(out, inputs, titles); err != nil {
		return "", err
	}

	for _, in := range inputs {
		if in == out {
			continue
		}
		if err := os.Remove(in); err != nil {
			return out, fmt.Errorf("remove merged source %q: %w", in, err)
		}
	}
	return out, nil
}
