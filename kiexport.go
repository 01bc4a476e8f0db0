package kiexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vishnumaiea/kiexport/pkg/artifact"
	"github.com/vishnumaiea/kiexport/pkg/config"
	"github.com/vishnumaiea/kiexport/pkg/export"
	"github.com/vishnumaiea/kiexport/pkg/formatter"
	"github.com/vishnumaiea/kiexport/pkg/metadata"
	"github.com/vishnumaiea/kiexport/pkg/toolexec"
)

// Version is the version of the exporter.
const Version = config.CurrentVersion

// ReportName is the file name of the release report.
const ReportName = "report.md"

var (
	ErrMissingInput   = export.ErrMissingInput
	ErrUnknownCommand = export.ErrUnknownCommand
	ErrUnknownVariant = export.ErrUnknownVariant
	ErrNoCommands     = export.ErrNoCommands
	ErrQualityGate    = export.ErrQualityGate
	ErrToolFailed     = toolexec.ErrToolFailed
	ErrVersionTooOld  = config.ErrVersionTooOld
)

// Options configures a run.
type Options struct {
	ProjectDir    string   // "" = current directory
	ConfigPath    string   // "" = <ProjectDir>/kiexport.json
	PCBFile       string   // "" = derived from the project
	SchematicFile string   // "" = derived from the project
	OutputDir     string   // base directory; wins over the configured one
	Commands      []string // "gerbers", "ddd:VRML"; empty = configured run list

	Clean       bool // remove base/R<rev> before exporting
	NoOverwrite bool // never reuse an existing artifact directory
	DryRun      bool // print the tool commands instead of running them
	NoSnapshot  bool
	NoReport    bool

	KiCadCLI   string // "" = kicad-cli from PATH
	Python     string // "" = python3 from PATH
	IBOMPlugin string // overrides the configured plugin path

	Runner     toolexec.Runner // nil = run the real tools
	Merger     artifact.Merger // nil = pdfcpu
	ToolOutput io.Writer       // receives tool output and dry-run commands
	Prompter   Prompter        // nil = continue after failed rule checks
	Logger     Logger          // nil = no logging
	Now        func() time.Time
}

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Identity metadata.Identity
	Status   *StatusMap
	Outcomes []*export.Outcome
	Aborted  bool   // the operator stopped after a failed rule check
	Snapshot string // source snapshot archive, "" when none was taken
	Report   string // report path, "" when none was written
	Markdown string // report contents
}

// OK reports whether every command ran and succeeded.
func (r *Result) OK() bool {
	return !r.Aborted && r.Status.AllOK()
}

func (o *Options) logInfo(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Infof(f, a...)
	}
}

func (o *Options) logWarn(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Warnf(f, a...)
	}
}

func (o *Options) logError(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Errorf(f, a...)
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run loads the configuration, validates the run list, derives the project
// identity and executes every command in order. A failing command is
// recorded and the run continues; configuration problems are returned
// before anything is executed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	projectDir, err := filepath.Abs(defaultString(opts.ProjectDir, "."))
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", err)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(projectDir, config.DefaultFileName)
	}
	resolver, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if resolver.Loaded() {
		opts.logInfo("Using configuration %s", resolver.Path)
	} else {
		opts.logInfo("No configuration at %s, using built-in defaults", configPath)
	}

	if !resolver.DeclaresVersion() {
		opts.logWarn("%s declares no version; assuming %s", resolver.Path, resolver.Version())
	}
	newer, err := config.CheckVersion(resolver.Version())
	if err != nil {
		return nil, err
	}
	if newer {
		opts.logWarn("Configuration version %s is newer than %s; unknown options are passed through", resolver.Version(), config.CurrentVersion)
	}

	specs := resolver.Commands()
	if len(opts.Commands) > 0 {
		specs = ParseCommands(opts.Commands)
	}
	if err := export.Validate(specs, resolver); err != nil {
		return nil, err
	}

	pcb, sch, err := resolveDesignFiles(projectDir, resolver.ProjectName(), opts.PCBFile, opts.SchematicFile)
	if err != nil {
		return nil, err
	}

	source := pcb
	if !fileExists(source) {
		source = sch
	}
	identity, err := metadata.FromFile(source)
	if err != nil {
		return nil, err
	}
	opts.logInfo("Project %s, revision %s", identity.ProjectName, identity.Revision)

	outputDir := opts.OutputDir
	if outputDir != "" {
		if outputDir, err = filepath.Abs(outputDir); err != nil {
			return nil, fmt.Errorf("output directory: %w", err)
		}
	}

	runner := opts.Runner
	if runner == nil {
		if opts.DryRun {
			runner = &toolexec.DryRunner{Out: opts.ToolOutput}
		} else {
			runner = &toolexec.ExecRunner{Stdout: opts.ToolOutput, Stderr: opts.ToolOutput}
		}
	}

	env := &export.Env{
		Config:        resolver,
		Identity:      identity,
		Allocator:     &artifact.Allocator{Now: opts.Now, DryRun: opts.DryRun},
		Runner:        runner,
		Merger:        opts.Merger,
		Logger:        opts.Logger,
		PCBFile:       pcb,
		SchematicFile: sch,
		KiCadCLI:      opts.KiCadCLI,
		Python:        opts.Python,
		IBOMPlugin:    opts.IBOMPlugin,
		Root:          projectDir,
		OutputDir:     outputDir,
		Overwrite:     !opts.NoOverwrite,
		DryRun:        opts.DryRun,
	}

	if opts.Clean {
		if err := clean(&opts, env, specs); err != nil {
			return nil, err
		}
	}

	res := &Result{
		RunID:    uuid.NewString(),
		Identity: identity,
		Status:   NewStatusMap(),
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		opts.logInfo("Exporting %s...", spec)
		outcome := export.Run(ctx, env, spec)
		res.Outcomes = append(res.Outcomes, outcome)
		res.Status.Set(spec.String(), outcome.OK)

		if outcome.OK {
			opts.logInfo("%s done", spec)
			continue
		}
		opts.logError("%v", outcome.Err)

		if errors.Is(outcome.Err, export.ErrQualityGate) {
			if !confirmContinue(&opts, spec, outcome) {
				res.Aborted = true
				opts.logWarn("Run stopped after %s", spec)
				break
			}
		}
	}

	if res.OK() && !opts.DryRun && !opts.NoSnapshot {
		snap, err := snapshot(env, projectDir, opts.now())
		if err != nil {
			opts.logError("Source snapshot failed: %v", err)
		} else if snap != "" {
			res.Snapshot = snap
			opts.logInfo("Source snapshot %s", filepath.Base(snap))
		}
	}

	res.Markdown = formatter.ToMarkdown(formatter.Run{
		ID:       res.RunID,
		Identity: identity,
		Time:     opts.now(),
		DryRun:   opts.DryRun,
		Aborted:  res.Aborted,
		Outcomes: res.Outcomes,
		Snapshot: res.Snapshot,
	})

	if !opts.DryRun && !opts.NoReport {
		path, err := writeReport(env, specs, opts.now(), res.Markdown)
		if err != nil {
			opts.logError("Report failed: %v", err)
		} else {
			res.Report = path
			opts.logInfo("Report written to %s", path)
		}
	}

	return res, nil
}

func confirmContinue(opts *Options, spec config.CommandSpec, outcome *export.Outcome) bool {
	question := fmt.Sprintf("%s failed the rule check (%s). Continue with the remaining commands?", spec, outcome.Check)
	if opts.Prompter == nil {
		opts.logWarn("%s failed the rule check; continuing (non-interactive)", spec)
		return true
	}
	ok, err := opts.Prompter.Confirm(question)
	if err != nil {
		opts.logWarn("Could not read an answer (%v); continuing", err)
		return true
	}
	return ok
}

// clean removes base/R<rev> for every base directory the run list uses.
func clean(opts *Options, env *export.Env, specs []config.CommandSpec) error {
	for _, dir := range revisionDirs(env, specs) {
		if opts.DryRun {
			opts.logInfo("Would remove %s", dir)
			continue
		}
		opts.logInfo("Removing %s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clean %q: %w", dir, err)
		}
	}
	return nil
}

func revisionDirs(env *export.Env, specs []config.CommandSpec) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, spec := range specs {
		dir := artifact.RevisionDir(env.BaseDir(spec.Name), env.OutputDir, env.Identity.Revision)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func writeReport(env *export.Env, specs []config.CommandSpec, now time.Time, markdown string) (string, error) {
	dir := filepath.Join(revisionDirs(env, specs)[0], artifact.DirStamp(now))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}
	path := filepath.Join(dir, ReportName)
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ParseCommands turns "name" and "name:variant" strings into run-list
// entries. Entries may also be comma-separated; blanks are skipped.
func ParseCommands(items []string) []config.CommandSpec {
	var specs []config.CommandSpec
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, variant, _ := strings.Cut(part, ":")
			specs = append(specs, config.CommandSpec{
				Name:    strings.TrimSpace(name),
				Variant: strings.TrimSpace(variant),
			})
		}
	}
	return specs
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
