package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vishnumaiea/kiexport/pkg/argsynth"
	"github.com/vishnumaiea/kiexport/pkg/artifact"
	"github.com/vishnumaiea/kiexport/pkg/config"
	"github.com/vishnumaiea/kiexport/pkg/toolexec"
)

// Run executes one command of the run list: allocate its directory, purge
// stale files, call the tool once per planned item, post-process, check
// and archive. Failures are reported in the returned outcome, never as a
// panic or a nil result.
func Run(ctx context.Context, env *Env, spec config.CommandSpec) *Outcome {
	out := &Outcome{Command: spec}
	log := env.logger()

	desc, ok := Lookup(spec.Name)
	if !ok {
		return out.fail("plan", fmt.Errorf("%w: %q", ErrUnknownCommand, spec.Name))
	}

	input := env.input(desc.Input)
	if !fileExists(input) {
		return out.fail("input", fmt.Errorf("%w: %s file %q", ErrMissingInput, desc.Input, input))
	}

	job := &Job{
		Env:     env,
		Desc:    desc,
		Variant: spec.Variant,
		Options: env.Config.Options(desc.Name),
		Input:   input,
	}
	if job.Variant == "" {
		job.Variant = defaultVariant(job)
	}

	alloc, err := env.Allocator.Allocate(env.BaseDir(desc.Name), env.OutputDir, desc.Subfolder, env.Identity.Revision, env.Overwrite)
	if err != nil {
		return out.fail("allocate", err)
	}
	job.Dir = alloc
	out.Dir = alloc.Path
	out.stage("allocate", nil)

	job.Planned, err = desc.plan(job)
	if err != nil {
		return out.fail("plan", err)
	}
	out.stage("plan", nil)

	if env.DryRun {
		out.skip("purge")
	} else {
		n, err := job.purge()
		if err != nil {
			return out.fail("purge", err)
		}
		if n > 0 {
			log.Infof("%s: removed %d stale files", spec, n)
		}
		out.stage("purge", nil)
	}

	runner := env.Runner
	if runner == nil {
		runner = &toolexec.ExecRunner{}
	}
	for _, inv := range job.Planned {
		cmd, err := job.command(inv)
		if err != nil {
			return out.fail("export", fmt.Errorf("%s: %w", inv.Item, err))
		}
		log.Infof("%s: %s", spec, inv.Item)
		res, err := runner.Run(ctx, cmd)
		if res != nil {
			job.Outputs = append(job.Outputs, res)
		}
		if err != nil {
			return out.fail("export", fmt.Errorf("%s: %w", inv.Item, err))
		}
	}
	out.stage("export", nil)

	if env.DryRun {
		if desc.post != nil {
			out.skip(desc.postStage)
		}
		if desc.RuleCheck {
			out.skip("check")
		}
		out.skip("archive")
		out.OK = true
		return out
	}

	if desc.post != nil {
		if err := desc.post(job); err != nil {
			return out.fail(desc.postStage, err)
		}
		out.stage(desc.postStage, nil)
	}

	if out.Files, err = job.produced(); err != nil {
		return out.fail("archive", err)
	}
	if len(out.Files) == 0 {
		log.Warnf("%s: tool reported success but wrote no files to %s", spec, alloc.Path)
	}

	base := artifact.ArchiveBaseName(env.Identity.Prefix(), job.label(), alloc.Date)
	zipPath, n, err := artifact.ArchiveNext(alloc.Path, base, job.filter())
	if err != nil {
		return out.fail("archive", err)
	}
	if n > 0 {
		out.Archive = zipPath
		log.Infof("%s: archived %d files into %s", spec, n, filepath.Base(zipPath))
	}
	out.stage("archive", nil)

	if desc.RuleCheck {
		rc := ScanRuleCheck(job.transcript())
		out.Check = &rc
		if !rc.Passed() {
			return out.fail("check", fmt.Errorf("%w: %s", ErrQualityGate, rc))
		}
		out.stage("check", nil)
	}

	out.OK = true
	return out
}

// command builds the argument vector of one invocation:
// <tool> <lead...> <output-flag> <output> <flags...> <extra...> <input>.
func (j *Job) command(inv Invocation) (toolexec.Command, error) {
	opts := inv.Options
	if opts == nil {
		opts = j.Options
	}
	flags, err := argsynth.Synthesize(opts, inv.Context)
	if err != nil {
		return toolexec.Command{}, err
	}

	name := inv.Tool
	if name == "" {
		name = j.Env.KiCadCLI
	}
	if name == "" {
		name = DefaultKiCadCLI
	}
	lead := inv.Lead
	if lead == nil {
		lead = j.Desc.Subcommand
	}
	outFlag := inv.OutputFlag
	if outFlag == "" {
		outFlag = config.OutputKey
	}

	args := make([]string, 0, len(lead)+len(flags)+len(inv.Extra)+3)
	args = append(args, lead...)
	args = append(args, outFlag, inv.Output)
	args = append(args, flags...)
	args = append(args, inv.Extra...)
	args = append(args, j.Input)
	return toolexec.Command{Name: name, Args: args}, nil
}

func (j *Job) purge() (int, error) {
	if !j.Desc.PurgePlanned {
		return artifact.Purge(j.Dir.Path, j.Desc.Exts, nil)
	}
	n := 0
	for _, name := range j.plannedFiles() {
		err := os.Remove(j.Dir.File(name))
		if err == nil {
			n++
			continue
		}
		if !os.IsNotExist(err) {
			return n, fmt.Errorf("remove %q: %w", name, err)
		}
	}
	return n, nil
}

func (j *Job) plannedFiles() []string {
	names := make([]string, 0, len(j.Planned))
	for _, inv := range j.Planned {
		names = append(names, baseName(inv.Output))
	}
	return names
}

func (j *Job) filter() artifact.Filter {
	if j.Desc.PurgePlanned {
		return artifact.Filter{Names: j.plannedFiles()}
	}
	return artifact.Filter{Exts: j.Desc.Exts}
}

// produced lists the files of the job directory this job accounts for.
func (j *Job) produced() ([]string, error) {
	entries, err := os.ReadDir(j.Dir.Path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", j.Dir.Path, err)
	}
	f := j.filter()
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && f.Match(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (j *Job) label() string {
	if j.Variant == "" {
		return j.Desc.Label
	}
	return j.Desc.Label + "-" + artifact.SanitizeName(j.Variant)
}

func (j *Job) transcript() string {
	var b strings.Builder
	for _, o := range j.Outputs {
		b.WriteString(o.Stdout)
		b.WriteString("\n")
		b.WriteString(o.Stderr)
		b.WriteString("\n")
	}
	return b.String()
}

func baseName(path string) string {
	return filepath.Base(strings.TrimRight(path, `/\`))
}
