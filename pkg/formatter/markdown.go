package formatter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vishnumaiea/kiexport/pkg/export"
	"github.com/vishnumaiea/kiexport/pkg/metadata"
)

// Run is what a release report describes.
type Run struct {
	ID       string
	Identity metadata.Identity
	Time     time.Time
	DryRun   bool
	Aborted  bool // the operator stopped the run after a failed rule check
	Outcomes []*export.Outcome
	Snapshot string // source snapshot archive, "" when none was taken
}

// ToMarkdown renders a run as a release report: the project identity, one
// status row per command, rule check summaries, the produced files and the
// errors, in run order.
func ToMarkdown(run Run) string {
	var sb strings.Builder

	id := run.Identity
	heading := id.Title
	if heading == "" {
		heading = id.ProjectName
	}
	sb.WriteString(fmt.Sprintf("# %s - Release %s\n\n", heading, id.Tag()))

	if run.DryRun {
		sb.WriteString("_Dry run: commands were printed, no files were written._\n\n")
	}
	if run.Aborted {
		sb.WriteString("**The run was stopped by the operator after a failed rule check.**\n\n")
	}

	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	writeField(&sb, "Project", id.ProjectName)
	writeField(&sb, "Revision", id.Revision)
	writeField(&sb, "Title", id.Title)
	writeField(&sb, "Company", id.Company)
	writeField(&sb, "Design date", id.Date)
	writeField(&sb, "Generated", run.Time.Format("2006-01-02 15:04:05"))
	writeField(&sb, "Run ID", run.ID)
	sb.WriteString("\n")

	if len(id.Comments) > 0 {
		sb.WriteString("## Comments\n\n")
		for _, c := range id.Comments {
			sb.WriteString(fmt.Sprintf("- %s\n", c))
		}
		sb.WriteString("\n")
	}

	// Status
	sb.WriteString("## Status\n\n")
	sb.WriteString("| Command | Status | Directory | Archive |\n")
	sb.WriteString("|---------|--------|-----------|---------|\n")
	for _, o := range run.Outcomes {
		archive := "-"
		if o.Archive != "" {
			archive = fmt.Sprintf("`%s`", filepath.Base(o.Archive))
		}
		dir := "-"
		if o.Dir != "" {
			dir = fmt.Sprintf("`%s`", filepath.ToSlash(o.Dir))
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", escapeCell(o.Command.String()), statusText(o), dir, archive))
	}
	sb.WriteString("\n")

	// Rule checks
	var checked []*export.Outcome
	for _, o := range run.Outcomes {
		if o.Check != nil {
			checked = append(checked, o)
		}
	}
	if len(checked) > 0 {
		sb.WriteString("## Rule Checks\n\n")
		sb.WriteString("| Check | Violations | Unconnected | Parity Issues | Result |\n")
		sb.WriteString("|-------|------------|-------------|---------------|--------|\n")
		for _, o := range checked {
			rc := o.Check
			result := "pass"
			if !rc.Passed() {
				result = "fail"
			}
			if rc.Markers == 0 {
				result = "no summary"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s |\n", o.Command, rc.Violations, rc.Unconnected, rc.ParityIssues, result))
		}
		sb.WriteString("\n")
	}

	// Files
	var anyFiles bool
	for _, o := range run.Outcomes {
		if len(o.Files) > 0 {
			anyFiles = true
			break
		}
	}
	if anyFiles {
		sb.WriteString("## Files\n\n")
		for _, o := range run.Outcomes {
			if len(o.Files) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("### %s\n\n", o.Command))
			for _, f := range o.Files {
				sb.WriteString(fmt.Sprintf("- `%s`\n", f))
			}
			sb.WriteString("\n")
		}
	}

	if run.Snapshot != "" {
		sb.WriteString("## Source Snapshot\n\n")
		sb.WriteString(fmt.Sprintf("`%s`\n\n", filepath.ToSlash(run.Snapshot)))
	}

	// Errors
	var failed []*export.Outcome
	for _, o := range run.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, o := range failed {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", o.Command, o.Err))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeField(sb *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	sb.WriteString(fmt.Sprintf("| %s | %s |\n", name, escapeCell(value)))
}

func statusText(o *export.Outcome) string {
	if o.OK {
		return "ok"
	}
	return "failed"
}

// escapeCell keeps a value inside its markdown table cell: pipes are
// escaped and line breaks become spaces.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
