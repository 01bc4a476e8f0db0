package main

import (
	"fmt"
	"os"

	"github.com/vishnumaiea/kiexport"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// newLogger picks the logger for a log format. "color" is the interactive
// default; the others are structured and go to stderr.
func newLogger(format string) (kiexport.Logger, error) {
	var formatter log.Formatter
	switch format {
	case "", "color":
		return &cliLogger{}, nil
	case "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("unknown log format %q (want color, text, json or logfmt)", format)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "kiexport",
		ReportTimestamp: true,
		Formatter:       formatter,
	}), nil
}

// cliLogger implements kiexport.Logger with colored terminal output.
type cliLogger struct{}

func (l *cliLogger) Infof(format string, args ...any) {
	color.New(color.FgYellow).Printf(format+"\n", args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	color.New(color.FgYellow).Printf("⚠ "+format+"\n", args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	color.New(color.FgRed).Printf("✗ "+format+"\n", args...)
}

// stdinPrompter asks on the terminal. Without one there is nobody to ask
// and failed rule checks do not stop the run.
func stdinPrompter(cmd *cobra.Command) kiexport.Prompter {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil
	}
	return &kiexport.LinePrompter{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
}
