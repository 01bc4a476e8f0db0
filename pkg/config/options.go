package config

import (
	"iter"
	"strings"
)

const (
	// FlagPrefix marks option names that are passed to the external tool.
	FlagPrefix = "--"
	// DirectivePrefix marks option names that steer the exporter itself.
	DirectivePrefix = "kie_"
	// OutputKey holds the configured base directory of an artifact type.
	// It is emitted by the pipeline, never by the synthesizer.
	OutputKey = "--output"
)

// IsFlag reports whether key is a tool flag.
func IsFlag(key string) bool { return strings.HasPrefix(key, FlagPrefix) }

// Options is an insertion-ordered option map for one artifact type.
// Order matters: flags are emitted in the order the user wrote them.
type Options struct {
	keys   []string
	values map[string]Value
}

// NewOptions returns an empty option map.
func NewOptions() *Options {
	return &Options{values: make(map[string]Value)}
}

// Set stores v under key. A key keeps its original position when set again.
func (o *Options) Set(key string, v Value) {
	if o.values == nil {
		o.values = make(map[string]Value)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key. It is safe on a nil map.
func (o *Options) Get(key string) (Value, bool) {
	if o == nil {
		return Absent(), false
	}
	v, ok := o.values[key]
	return v, ok
}

// Delete removes key.
func (o *Options) Delete(key string) {
	if o == nil {
		return
	}
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the option names in insertion order.
func (o *Options) Keys() []string {
	if o == nil {
		return nil
	}
	cp := make([]string, len(o.keys))
	copy(cp, o.keys)
	return cp
}

// Len returns the number of options.
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// All iterates entries in insertion order.
func (o *Options) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil {
			return
		}
		for _, k := range o.keys {
			if !yield(k, o.values[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy, including nested tables.
func (o *Options) Clone() *Options {
	cp := NewOptions()
	for k, v := range o.All() {
		if t := v.AsTable(); t != nil {
			v = Table(t.Clone())
		}
		cp.Set(k, v)
	}
	return cp
}
