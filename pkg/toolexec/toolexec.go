// Package toolexec runs the external conversion tools. Commands are
// executed directly, without a shell, one at a time.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrToolFailed is returned when a tool exits with a nonzero code or cannot
// be started.
var ErrToolFailed = errors.New("tool failed")

// Command is one external process invocation.
type Command struct {
	Name string   // executable
	Args []string // subcommand tokens, --output, flags, input file
	Dir  string   // working directory, "" for the current one
}

// String renders the command as a shell-quoted line for display.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, Quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

// Quote quotes s for a POSIX shell when needed.
func Quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return q
}

// Output is what a finished command produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// ExecRunner runs commands with os/exec. Output is captured and, when the
// writers are set, also streamed to them.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Output, error) {
	var stdout, stderr bytes.Buffer

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = tee(&stdout, r.Stdout)
	c.Stderr = tee(&stderr, r.Stderr)

	err := c.Run()
	out := &Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, fmt.Errorf("%w: %s exited with code %d", ErrToolFailed, cmd.Name, out.ExitCode)
	}
	out.ExitCode = -1
	return out, fmt.Errorf("%w: %s: %v", ErrToolFailed, cmd.Name, err)
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// DryRunner prints commands instead of running them and reports success.
type DryRunner struct {
	Out io.Writer
}

func (r *DryRunner) Run(_ context.Context, cmd Command) (*Output, error) {
	if r.Out != nil {
		fmt.Fprintln(r.Out, cmd.String())
	}
	return &Output{}, nil
}

// Recorder is a Runner that remembers every command and answers from a
// function. It is meant for tests of code that drives tools.
type Recorder struct {
	Commands []Command
	Respond  func(cmd Command) (*Output, error)
}

func (r *Recorder) Run(_ context.Context, cmd Command) (*Output, error) {
	r.Commands = append(r.Commands, cmd)
	if r.Respond == nil {
		return &Output{}, nil
	}
	return r.Respond(cmd)
}
