// Package export runs one artifact type through the export pipeline:
// allocate a directory, purge stale files, invoke the tool once per planned
// item, post-process the results and archive them.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vishnumaiea/kiexport/pkg/artifact"
	"github.com/vishnumaiea/kiexport/pkg/config"
	"github.com/vishnumaiea/kiexport/pkg/metadata"
	"github.com/vishnumaiea/kiexport/pkg/toolexec"
)

var (
	// ErrMissingInput is returned when the design file a command needs
	// does not exist.
	ErrMissingInput = errors.New("input file not found")
	// ErrQualityGate is returned when a rule check reports problems.
	ErrQualityGate = errors.New("rule check failed")
	// ErrUnknownVariant is returned for a variant the type does not offer.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrUnknownCommand is returned for a command name outside the closed set.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNoCommands is returned for an empty run list.
	ErrNoCommands = errors.New("no commands to run")
)

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Env is shared by every command of one run.
type Env struct {
	Config    *config.Resolver
	Identity  metadata.Identity
	Allocator *artifact.Allocator
	Runner    toolexec.Runner
	Merger    artifact.Merger
	Logger    Logger

	PCBFile       string
	SchematicFile string

	KiCadCLI   string // kicad-cli executable
	Python     string // interpreter for the BOM plugin
	IBOMPlugin string // overrides the configured plugin path

	Root      string // relative configured base directories start here
	OutputDir string // base directory from the CLI; wins over the config
	Overwrite bool   // reuse an existing artifact directory
	DryRun    bool   // print commands; touch no files
}

func (e *Env) logger() Logger {
	if e.Logger == nil {
		return nopLogger{}
	}
	return e.Logger
}

func (e *Env) merger() artifact.Merger {
	if e.Merger == nil {
		return artifact.PDFMerger{}
	}
	return e.Merger
}

// BaseDir returns the configured base directory of an artifact type,
// resolved against Root. It is "" when none is configured.
func (e *Env) BaseDir(typ string) string {
	base := e.Config.String(typ, config.OutputKey)
	if base == "" || filepath.IsAbs(base) || e.Root == "" {
		return base
	}
	return filepath.Join(e.Root, base)
}

func (e *Env) input(kind Input) string {
	if kind == InputSchematic {
		return e.SchematicFile
	}
	return e.PCBFile
}

// Stage is the result of one pipeline step.
type Stage struct {
	Name    string
	OK      bool
	Skipped bool
	Err     error
}

// Outcome is the result of one command.
type Outcome struct {
	Command config.CommandSpec
	OK      bool
	Err     error
	Dir     string
	Files   []string // produced file names inside Dir
	Archive string   // archive path, "" when none was written
	Check   *RuleCheck
	Stages  []Stage
}

func (o *Outcome) stage(name string, err error) {
	o.Stages = append(o.Stages, Stage{Name: name, OK: err == nil, Err: err})
}

func (o *Outcome) skip(name string) {
	o.Stages = append(o.Stages, Stage{Name: name, OK: true, Skipped: true})
}

func (o *Outcome) fail(name string, err error) *Outcome {
	o.stage(name, err)
	o.OK = false
	o.Err = fmt.Errorf("%s: %s: %w", o.Command, name, err)
	return o
}

// Job is one command being run.
type Job struct {
	Env     *Env
	Desc    *Descriptor
	Variant string
	Options *config.Options
	Dir     artifact.Allocation
	Input   string
	Planned []Invocation
	Outputs []*toolexec.Output
}

// Option looks up a directive or flag of the job's type with the usual
// fallback to the defaults.
func (j *Job) Option(key string) config.Value {
	return j.Env.Config.Option(j.Desc.Name, key)
}

// Name returns "<project>-R<rev>-<suffix><ext>".
func (j *Job) Name(suffix, ext string) string {
	return j.Env.Identity.Prefix() + "-" + suffix + ext
}

// Path returns the path of Name(suffix, ext) inside the job directory.
func (j *Job) Path(suffix, ext string) string {
	return j.Dir.File(j.Name(suffix, ext))
}

// toolPrefix is the stem the tool gives files it names itself: the design
// file's base name.
func (j *Job) toolPrefix() string {
	base := filepath.Base(j.Input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
