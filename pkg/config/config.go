// Package config loads the exporter configuration: an embedded default
// tree and an optional user file that overrides it per artifact type and
// per option.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultFileName is the configuration file looked up next to a project.
const DefaultFileName = "kiexport.json"

//go:embed defaults.json
var defaultsJSON []byte

// Defaults returns a freshly decoded copy of the built-in configuration.
func Defaults() *Tree {
	t, err := Parse(defaultsJSON)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return t
}

// DefaultsJSON returns the raw built-in configuration document.
func DefaultsJSON() []byte {
	cp := make([]byte, len(defaultsJSON))
	copy(cp, defaultsJSON)
	return cp
}

// WriteDefaults writes the built-in configuration to path. Existing files
// are not overwritten unless force is set.
func WriteDefaults(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %q already exists", path)
		}
	}
	if err := os.WriteFile(path, defaultsJSON, 0644); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}

// Resolver answers option lookups against the user tree and falls back to
// the defaults tree. The user tree is never assumed to be complete.
type Resolver struct {
	defaults *Tree
	current  *Tree

	// Path is the file the user tree was read from, "" for defaults only.
	Path string
}

// NewResolver layers current over defaults. A nil current means the
// defaults are used for everything.
func NewResolver(defaults, current *Tree) *Resolver {
	if current == nil {
		current = defaults
	}
	return &Resolver{defaults: defaults, current: current}
}

// Load reads the user configuration at path and layers it over the
// built-in defaults. A missing file is not an error: the defaults are used
// and Loaded reports false.
func Load(path string) (*Resolver, error) {
	defaults := Defaults()
	if path == "" {
		return NewResolver(defaults, nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewResolver(defaults, nil), nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	current, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	r := NewResolver(defaults, current)
	r.Path = path
	return r, nil
}

// Loaded reports whether a user file was read.
func (r *Resolver) Loaded() bool { return r.Path != "" }

// Version returns the version declared by the user file, or the defaults'
// version when none was loaded or declared.
func (r *Resolver) Version() string {
	if r.current.Version != "" {
		return r.current.Version
	}
	return r.defaults.Version
}

// DeclaresVersion reports whether the user file states its version.
// Without a user file the defaults' version counts as declared.
func (r *Resolver) DeclaresVersion() bool { return r.current.Version != "" }

// ProjectName returns the configured project name, possibly "".
func (r *Resolver) ProjectName() string {
	if r.current.ProjectName != "" {
		return r.current.ProjectName
	}
	return r.defaults.ProjectName
}

// Commands returns the configured run list. The defaults' list is used
// when the user file does not declare one; a declared empty list stays
// empty.
func (r *Resolver) Commands() []CommandSpec {
	src := r.current.Commands
	if src == nil {
		src = r.defaults.Commands
	}
	cp := make([]CommandSpec, len(src))
	copy(cp, src)
	return cp
}

// Lookup returns current[typ][key] if present, else the result of
// fallback. fallback is only called on a miss.
func (r *Resolver) Lookup(typ, key string, fallback func() Value) Value {
	if v, ok := r.current.lookup(typ, key); ok {
		return v
	}
	if fallback == nil {
		return Absent()
	}
	return fallback()
}

// Option returns current[typ][key], falling back to defaults[typ][key].
func (r *Resolver) Option(typ, key string) Value {
	return r.Lookup(typ, key, func() Value {
		v, _ := r.defaults.lookup(typ, key)
		return v
	})
}

// Bool is a shorthand for Option(...).AsBool().
func (r *Resolver) Bool(typ, key string) bool { return r.Option(typ, key).AsBool() }

// String is a shorthand for Option(...).AsText().
func (r *Resolver) String(typ, key string) string { return r.Option(typ, key).AsText() }

// Strings is a shorthand for Option(...).AsList().
func (r *Resolver) Strings(typ, key string) []string { return r.Option(typ, key).AsList() }

// Options returns the option map used to build command lines for typ: the
// user's map when the user file defines the type, else the defaults' map.
// The result is a copy and may be modified by the caller.
func (r *Resolver) Options(typ string) *Options {
	if o, ok := r.current.Options(typ); ok {
		return o.Clone()
	}
	if o, ok := r.defaults.Options(typ); ok {
		return o.Clone()
	}
	return NewOptions()
}
