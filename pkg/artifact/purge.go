package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

// Purge removes the top-level regular files of dir whose extension is in
// include and not in exclude. An empty include matches every file. A
// missing dir is not an error. It returns the number of files removed.
func Purge(dir string, include, exclude []string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %q: %w", dir, err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if len(include) > 0 && !hasExt(name, include) {
			continue
		}
		if hasExt(name, exclude) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("remove %q: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
