package artifact

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(n), 0644))
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestNextFreeName(t *testing.T) {
	candidate := func(seq int) string { return "Gerber-" + string(rune('0'+seq)) }

	assert.Equal(t, "Gerber-1", NextFreeName(SetOf(), candidate))
	assert.Equal(t, "Gerber-3", NextFreeName(SetOf("Gerber-1", "Gerber-2"), candidate))
	assert.Equal(t, "Gerber-2", NextFreeName(SetOf("Gerber-1", "Gerber-3"), candidate))
}

func TestAllocateCreatesVersionedPath(t *testing.T) {
	base := filepath.Join(t.TempDir(), "Export")
	a := &Allocator{Now: fixedNow}

	got, err := a.Allocate(base, "", "Gerber", "1.0", true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "R1.0", "2025-01-15", "Gerber"), got.Path)
	assert.DirExists(t, filepath.Join(base, "R1.0"))
	assert.DirExists(t, filepath.Join(base, "R1.0", "2025-01-15"))
	assert.DirExists(t, got.Path)
	assert.Equal(t, got.Path+string(filepath.Separator), got.Dir())
}

func TestAllocateCLIBaseWins(t *testing.T) {
	root := t.TempDir()
	configBase := filepath.Join(root, "configured")
	cliBase := filepath.Join(root, "cli")
	a := &Allocator{Now: fixedNow}

	got, err := a.Allocate(configBase, cliBase, "Drill", "2", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cliBase, "R2", "2025-01-15", "Drill"), got.Path)
	assert.NoDirExists(t, configBase)

	got, err = a.Allocate(configBase, "", "Drill", "2", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(configBase, "R2", "2025-01-15", "Drill"), got.Path)
}

func TestBaseDir(t *testing.T) {
	assert.Equal(t, "cli", BaseDir("cfg", "cli"))
	assert.Equal(t, "cfg", BaseDir("cfg", ""))
	assert.Equal(t, DefaultBaseDir, BaseDir("", ""))
}

func TestAllocateOverwriteReusesPath(t *testing.T) {
	base := t.TempDir()
	a := &Allocator{Now: fixedNow}

	first, err := a.Allocate(base, "", "Gerber", "1.0", true)
	require.NoError(t, err)
	second, err := a.Allocate(base, "", "Gerber", "1.0", true)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
}

func TestAllocateWithoutOverwriteNumbersPaths(t *testing.T) {
	base := t.TempDir()
	a := &Allocator{Now: fixedNow}

	first, err := a.Allocate(base, "", "Gerber", "1.0", false)
	require.NoError(t, err)
	second, err := a.Allocate(base, "", "Gerber", "1.0", false)
	require.NoError(t, err)
	third, err := a.Allocate(base, "", "Gerber", "1.0", false)
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(first.Path), "Gerber-1"), second.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(first.Path), "Gerber-2"), third.Path)
	assert.DirExists(t, second.Path)
}

func TestAllocateDryRunCreatesNothing(t *testing.T) {
	base := t.TempDir()
	a := &Allocator{Now: fixedNow, DryRun: true}

	got, err := a.Allocate(base, "", "Gerber", "1", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "R1", "2025-01-15", "Gerber"), got.Path)
	assert.NoDirExists(t, filepath.Join(base, "R1"))
}

func TestAllocateRejectsFileInTheWay(t *testing.T) {
	base := t.TempDir()
	touch(t, base, filepath.Join("R1", "2025-01-15", "Gerber"))
	a := &Allocator{Now: fixedNow}

	_, err := a.Allocate(base, "", "Gerber", "1", true)
	assert.Error(t, err)
}

func TestPurge(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string // files left
		removed int
	}{
		{
			name:    "include filter",
			include: []string{".gbr", "drl"},
			want:    []string{"b.pdf", "keep.zip", "sub"},
			removed: 2,
		},
		{
			name:    "empty include matches all",
			want:    []string{"sub"},
			removed: 4,
		},
		{
			name:    "exclude wins",
			exclude: []string{".zip"},
			want:    []string{"keep.zip", "sub"},
			removed: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, "a.gbr", "a.DRL", "b.pdf", "keep.zip", filepath.Join("sub", "x.gbr"))

			n, err := Purge(dir, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.removed, n)
			assert.Equal(t, tt.want, listDir(t, dir))
		})
	}
}

func TestPurgeMissingDir(t *testing.T) {
	n, err := Purge(filepath.Join(t.TempDir(), "nope"), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTagRename(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Board-F_Cu.gbr", "Board-job.gbrjob", "Board-notes.txt", "Other-F_Cu.gbr")

	renamed, err := TagRename(dir, "Board", "Board", "1.0", []string{".gbr", ".gbrjob"})
	require.NoError(t, err)
	sort.Strings(renamed)
	assert.Equal(t, []string{"Board-R1.0-F_Cu.gbr", "Board-R1.0-job.gbrjob"}, renamed)
	assert.Equal(t,
		[]string{"Board-R1.0-F_Cu.gbr", "Board-R1.0-job.gbrjob", "Board-notes.txt", "Other-F_Cu.gbr"},
		listDir(t, dir))

	// Second run does not double-tag.
	renamed, err = TagRename(dir, "Board", "Board", "1.0", []string{".gbr", ".gbrjob"})
	require.NoError(t, err)
	assert.Empty(t, renamed)
	assert.FileExists(t, filepath.Join(dir, "Board-R1.0-F_Cu.gbr"))
}

func TestTagRenameAllExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Board.drl", "Board-map.gbr")

	renamed, err := TagRename(dir, "Board", "Board", "A", nil)
	require.NoError(t, err)
	assert.Len(t, renamed, 2)
	assert.Equal(t, []string{"Board-RA-map.gbr", "Board-RA.drl"}, listDir(t, dir))
}

func TestTagRenameNormalizesProjectName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "My Board-F_Cu.gbr", "My Board.drl")

	renamed, err := TagRename(dir, "My Board", "My-Board", "1.0", nil)
	require.NoError(t, err)
	assert.Len(t, renamed, 2)
	assert.Equal(t, []string{"My-Board-R1.0-F_Cu.gbr", "My-Board-R1.0.drl"}, listDir(t, dir))

	renamed, err = TagRename(dir, "My Board", "My-Board", "1.0", nil)
	require.NoError(t, err)
	assert.Empty(t, renamed)
}

type fakeMerger struct {
	out    string
	inputs []string
	titles []string
	err    error
}

func (m *fakeMerger) Merge(out string, inputs, titles []string) error {
	m.out, m.inputs, m.titles = out, inputs, titles
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(out, []byte("merged"), 0644)
}

func TestMergeKeepsCallerOrderAndDeletesSources(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b-B_Cu.pdf", "a-F_Cu.pdf")
	m := &fakeMerger{}

	out, err := MergeWith(m, dir, []string{"b-B_Cu.pdf", "a-F_Cu.pdf"}, "Board-PCB.pdf")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Board-PCB.pdf"), out)
	assert.Equal(t, []string{filepath.Join(dir, "b-B_Cu.pdf"), filepath.Join(dir, "a-F_Cu.pdf")}, m.inputs)
	assert.Equal(t, []string{"b-B_Cu", "a-F_Cu"}, m.titles)
	assert.Equal(t, []string{"Board-PCB.pdf"}, listDir(t, dir))
}

func TestMergeFailureKeepsSources(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "b.pdf")
	m := &fakeMerger{err: errors.New("boom")}

	_, err := MergeWith(m, dir, []string{"a.pdf", "b.pdf"}, "out.pdf")
	require.Error(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, listDir(t, dir))
}

// writeBlankPDF writes a one-page PDF with a correct cross-reference table.
func writeBlankPDF(t *testing.T, path string) {
	t.Helper()
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n", len(objects)+1, xref)
	buf.WriteString("%%EOF\n")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestPDFMergerAddsBookmarkPerSource(t *testing.T) {
	api.DisableConfigDir()
	dir := t.TempDir()
	writeBlankPDF(t, filepath.Join(dir, "Board-R1.0-F_Cu.pdf"))
	writeBlankPDF(t, filepath.Join(dir, "Board-R1.0-B_Cu.pdf"))

	out, err := Merge(dir, []string{"Board-R1.0-F_Cu.pdf", "Board-R1.0-B_Cu.pdf"}, "Board-R1.0-PCB.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"Board-R1.0-PCB.pdf"}, listDir(t, dir))

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	bms, err := api.Bookmarks(f, nil)
	require.NoError(t, err)
	require.Len(t, bms, 2)
	assert.Equal(t, "Board-R1.0-F_Cu", bms[0].Title)
	assert.Equal(t, 1, bms[0].PageFrom)
	assert.Equal(t, "Board-R1.0-B_Cu", bms[1].Title)
	assert.Equal(t, 2, bms[1].PageFrom)
}

func TestMergeRejectsEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := MergeWith(&fakeMerger{}, dir, nil, "out.pdf")
	assert.Error(t, err)

	_, err = MergeWith(&fakeMerger{}, dir, []string{"missing.pdf"}, "out.pdf")
	assert.Error(t, err)
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.gbr", "b.drl", "notes.txt", "README", filepath.Join("sub", "c.gbr"))

	n, err := Archive(dir, "out.zip", Filter{Exts: []string{".gbr", ".drl", ".zip"}, Names: []string{"README"}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"README", "a.gbr", "b.drl"}, zipEntries(t, filepath.Join(dir, "out.zip")))

	// The previous archive matches ".zip" but the new archive never
	// contains itself.
	n, err = Archive(dir, "out2.zip", Filter{Exts: []string{".zip"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"out.zip"}, zipEntries(t, filepath.Join(dir, "out2.zip")))
}

func TestArchiveRecursivePatterns(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"Board.kicad_pcb", "Board.kicad_sch", "Board.kicad_prl",
		filepath.Join("lib.pretty", "R_0603.kicad_mod"),
		filepath.Join("Export", "R1", "Board.kicad_pcb"),
	)

	n, err := Archive(dir, "src.zip", Filter{
		Patterns:  []string{"*.kicad_pcb", "*.kicad_sch", "**/*.pretty/*.kicad_mod"},
		Recursive: true,
		SkipDirs:  []string{filepath.Join(dir, "Export")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t,
		[]string{"Board.kicad_pcb", "Board.kicad_sch", "lib.pretty/R_0603.kicad_mod"},
		zipEntries(t, filepath.Join(dir, "src.zip")))
}

func TestArchiveNothingMatches(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.txt")

	n, err := Archive(dir, "out.zip", Filter{Exts: []string{".gbr"}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, filepath.Join(dir, "out.zip"))
}

func TestArchiveNextSequence(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.gbr")
	base := ArchiveBaseName("Board-R1.0", "Gerber", fixedNow())
	assert.Equal(t, "Board-R1.0-Gerber-15012025", base)

	first, n, err := ArchiveNext(dir, base, Filter{Exts: []string{".gbr"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, filepath.Join(dir, base+"-1.zip"), first)

	second, _, err := ArchiveNext(dir, base, Filter{Exts: []string{".gbr"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, base+"-2.zip"), second)
	assert.FileExists(t, first)
}

func TestArchiveNextToSeparateDestination(t *testing.T) {
	src := t.TempDir()
	touch(t, src, "Board.kicad_pcb", filepath.Join("models", "part.step"))
	dest := filepath.Join(src, "Export", "R1", "2025-01-15")
	touch(t, dest, "old.step")

	path, n, err := ArchiveNextTo(src, dest, "Board-R1-Source-15012025", Filter{
		Patterns:  []string{"*.kicad_pcb", "**/*.step"},
		Recursive: true,
		SkipDirs:  []string{filepath.Join(src, "Export")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, filepath.Join(dest, "Board-R1-Source-15012025-1.zip"), path)
	assert.Equal(t, []string{"Board.kicad_pcb", "models/part.step"}, zipEntries(t, path))
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"F.Cu":          "F_Cu",
		"User.Drawings": "User_Drawings",
		"B.Silkscreen":  "B_Silkscreen",
		" In1.Cu ":      "In1_Cu",
		"...":           "item",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), in)
	}
}
