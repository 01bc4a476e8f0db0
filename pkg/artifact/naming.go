// Package artifact allocates versioned output directories and performs the
// file-level post-processing of exported artifacts: purging stale files,
// tagging names with the revision, merging documents and zipping results.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// NextFreeName returns the first candidate(seq), seq = 1, 2, ..., for
// which taken reports false. It never touches the filesystem itself.
func NextFreeName(taken func(name string) bool, candidate func(seq int) string) string {
	for seq := 1; ; seq++ {
		name := candidate(seq)
		if !taken(name) {
			return name
		}
	}
}

// SetOf adapts a list of existing names to NextFreeName's taken func.
func SetOf(names ...string) func(string) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

// DirStamp formats a date as used for directory names: 2025-01-15.
func DirStamp(t time.Time) string {
	return t.Format("2006-01-02")
}

// FileStamp formats a date as used in archive names: 15012025.
func FileStamp(t time.Time) string {
	return t.Format("02012006")
}

// ArchiveBaseName returns "<prefix>-<label>-<DDMMYYYY>", the stem that
// ArchiveNext extends with a sequence number.
func ArchiveBaseName(prefix, label string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, label, FileStamp(t))
}

// SanitizeName turns an item name such as a layer into a filename-safe
// token: "F.Cu" -> "F_Cu", "User Drawings" -> "User_Drawings".
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "item"
	}
	return name
}

// hasExt reports whether name has one of exts (case-insensitive). exts
// may be written with or without the leading dot.
func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}
