package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// MinVersion is the oldest configuration schema this build accepts.
	MinVersion = "1.0.0"
	// CurrentVersion is the schema version of the built-in defaults.
	CurrentVersion = "1.1.0"
)

var (
	ErrVersionTooOld  = errors.New("configuration version is too old")
	ErrInvalidVersion = errors.New("configuration version is not a semantic version")
)

// CheckVersion compares a configuration's declared version with
// MinVersion. Older versions are rejected. newer is true when the file was
// written by a later release; callers should warn but continue.
func CheckVersion(version string) (newer bool, err error) {
	v := normalizeVersion(version)
	if !semver.IsValid(v) {
		return false, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	if semver.Compare(v, normalizeVersion(MinVersion)) < 0 {
		return false, fmt.Errorf("%w: %s (minimum %s)", ErrVersionTooOld, version, MinVersion)
	}
	return semver.Compare(v, normalizeVersion(CurrentVersion)) > 0, nil
}

func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
