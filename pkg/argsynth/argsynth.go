// Package argsynth compiles a declarative option map into the flag part of
// an external tool command line.
package argsynth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vishnumaiea/kiexport/pkg/config"
)

const (
	LayersFlag     = "--layers"
	MirrorFlag     = "--mirror"
	DrillShapeFlag = "--drill-shape-opt"

	// DrillShapeNone is forced for silkscreen and fabrication layers, which
	// must not show drill marks.
	DrillShapeNone = 0
)

// ErrEmptyList is returned when a required list option has no items.
var ErrEmptyList = errors.New("required list is empty")

// Context carries what changes between the invocations of one multi-item
// export: the layer being plotted and per-item option overrides.
type Context struct {
	// Layer is the layer of the current iteration, "" when not iterating
	// layers. It replaces --layers and drives the mirror and drill-shape
	// overrides.
	Layer string
	// CommonLayers are appended to Layer in the --layers argument.
	CommonLayers []string
	// Overrides replace same-named options in place; options missing from
	// the map are appended after it. Used for position sides, render
	// presets and 3D variants.
	Overrides *config.Options
}

// Synthesize walks opts in insertion order and returns the flag arguments:
//
//   - names without the "--" prefix are engine directives and are skipped,
//     as is the reserved --output key;
//   - lists become one comma-joined argument;
//   - false, "" and absent values are omitted;
//   - true becomes the bare flag;
//   - numbers and strings follow the flag as one argument each.
//
// Values are returned as single argv tokens. They are never shell-quoted
// because tools are executed without a shell.
func Synthesize(opts *config.Options, ctx Context) ([]string, error) {
	merged := apply(opts, ctx)

	var args []string
	for key, v := range merged.All() {
		if !config.IsFlag(key) || key == config.OutputKey {
			continue
		}

		switch v.Kind() {
		case config.KindList:
			items := v.AsList()
			if len(items) == 0 {
				if key == LayersFlag {
					return nil, fmt.Errorf("%s: %w", key, ErrEmptyList)
				}
				continue
			}
			args = append(args, key, strings.Join(items, ","))
		case config.KindFlag:
			if v.AsBool() {
				args = append(args, key)
			}
		case config.KindNumber:
			args = append(args, key, config.FormatNumber(v.AsNumber()))
		case config.KindText:
			if s := v.AsText(); s != "" {
				args = append(args, key, s)
			}
		}
	}
	return args, nil
}

// apply returns a copy of opts with the overrides of ctx applied.
func apply(opts *config.Options, ctx Context) *config.Options {
	merged := config.NewOptions()
	if opts != nil {
		merged = opts.Clone()
	}

	for k, v := range ctx.Overrides.All() {
		merged.Set(k, v)
	}

	if ctx.Layer == "" {
		return merged
	}

	layers := append([]string{ctx.Layer}, ctx.CommonLayers...)
	merged.Set(LayersFlag, config.List(layers...))

	switch {
	case IsBackLayer(ctx.Layer):
		merged.Set(MirrorFlag, config.Flag(true))
	case IsFrontLayer(ctx.Layer):
		if _, ok := merged.Get(MirrorFlag); ok {
			merged.Set(MirrorFlag, config.Flag(false))
		}
	}

	if IsMarkingLayer(ctx.Layer) {
		merged.Set(DrillShapeFlag, config.Number(DrillShapeNone))
	}

	return merged
}

// Layers returns the items of the list option key. An empty or missing
// list is an error: the caller would otherwise emit a degenerate command.
func Layers(opts *config.Options, key string) ([]string, error) {
	v, _ := opts.Get(key)
	items := v.AsList()
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrEmptyList)
	}
	return items, nil
}

// IsFrontLayer reports whether layer is on the front side ("F.Cu").
func IsFrontLayer(layer string) bool { return strings.HasPrefix(layer, "F.") }

// IsBackLayer reports whether layer is on the back side ("B.Cu").
func IsBackLayer(layer string) bool { return strings.HasPrefix(layer, "B.") }

// IsMarkingLayer reports whether layer is a silkscreen or fabrication layer.
func IsMarkingLayer(layer string) bool {
	_, name, ok := strings.Cut(layer, ".")
	if !ok {
		return false
	}
	switch name {
	case "Silkscreen", "SilkS", "Fab":
		return true
	}
	return false
}
