package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TagRename renames every top-level file of dir that starts with stem
// and has one of exts (all files when exts is empty) to carry
// "<project>-R<revision>" in place of stem: with stem "My Board" and
// project "My-Board", "My Board-F_Cu.gbr" becomes "My-Board-R1.0-F_Cu.gbr".
//
// Files already named "<project>-R<revision>..." are left alone, so running
// it twice is a no-op. It returns the new file names.
func TagRename(dir, stem, project, revision string, exts []string) ([]string, error) {
	if stem == "" || project == "" {
		return nil, fmt.Errorf("tag rename in %q: empty prefix", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", dir, err)
	}

	tagged := project + "-R" + revision
	var renamed []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, tagged) || !strings.HasPrefix(name, stem) {
			continue
		}
		if len(exts) > 0 && !hasExt(name, exts) {
			continue
		}

		newName := tagged + name[len(stem):]
		if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, newName)); err != nil {
			return renamed, fmt.Errorf("rename %q: %w", name, err)
		}
		renamed = append(renamed, newName)
	}
	return renamed, nil
}
