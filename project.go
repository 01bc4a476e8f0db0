package kiexport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vishnumaiea/kiexport/pkg/artifact"
	"github.com/vishnumaiea/kiexport/pkg/export"
)

const (
	pcbExt     = ".kicad_pcb"
	schExt     = ".kicad_sch"
	projectExt = ".kicad_pro"
)

// resolveDesignFiles picks the board and schematic files of a run.
// Explicit paths win. A missing one is derived from the other's stem;
// otherwise the stem is the configured project name, else the first
// project, board or schematic file found in projectDir.
func resolveDesignFiles(projectDir, projectName, pcb, sch string) (string, string, error) {
	var err error
	if pcb != "" {
		if pcb, err = filepath.Abs(pcb); err != nil {
			return "", "", err
		}
	}
	if sch != "" {
		if sch, err = filepath.Abs(sch); err != nil {
			return "", "", err
		}
	}

	switch {
	case pcb != "" && sch == "":
		sch = swapExt(pcb, schExt)
	case sch != "" && pcb == "":
		pcb = swapExt(sch, pcbExt)
	case pcb == "" && sch == "":
		stem := projectName
		if stem == "" {
			stem = findStem(projectDir)
		}
		if stem == "" {
			return "", "", fmt.Errorf("%w: no KiCad project in %s", ErrMissingInput, projectDir)
		}
		pcb = filepath.Join(projectDir, stem+pcbExt)
		sch = filepath.Join(projectDir, stem+schExt)
	}

	if !fileExists(pcb) && !fileExists(sch) {
		return "", "", fmt.Errorf("%w: neither %s nor %s exists", ErrMissingInput, pcb, sch)
	}
	return pcb, sch, nil
}

func findStem(dir string) string {
	for _, ext := range []string{projectExt, pcbExt, schExt} {
		matches, _ := filepath.Glob(filepath.Join(dir, "*"+ext))
		sort.Strings(matches)
		if len(matches) > 0 {
			return strings.TrimSuffix(filepath.Base(matches[0]), ext)
		}
	}
	return ""
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// snapshot archives the project sources selected by the "source" patterns
// into base/R<rev>/<date>. Export directories are never descended into.
func snapshot(env *export.Env, projectDir string, now time.Time) (string, error) {
	if !env.Config.Bool("source", "kie_enabled") {
		return "", nil
	}
	patterns := env.Config.Strings("source", "kie_patterns")
	if len(patterns) == 0 {
		return "", nil
	}

	base := env.BaseDir("source")
	dest := filepath.Join(artifact.RevisionDir(base, env.OutputDir, env.Identity.Revision), artifact.DirStamp(now))
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", fmt.Errorf("create %q: %w", dest, err)
	}

	skip := []string{artifact.BaseDir(base, env.OutputDir)}
	for _, name := range export.Names() {
		skip = append(skip, artifact.BaseDir(env.BaseDir(name), env.OutputDir))
	}

	name := artifact.ArchiveBaseName(env.Identity.Prefix(), "Source", now)
	path, _, err := artifact.ArchiveNextTo(projectDir, dest, name, artifact.Filter{
		Patterns:  patterns,
		Recursive: true,
		SkipDirs:  skip,
	})
	return path, err
}
