package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vishnumaiea/kiexport"
	"github.com/vishnumaiea/kiexport/pkg/export"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = cellStyle.Foreground(lipgloss.Color("#10B981"))
	failStyle   = cellStyle.Foreground(lipgloss.Color("#EF4444"))
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("#6B7280"))
)

const statusCol = 1

// printSummary prints one row per command with its status, archive and
// rule-check counts.
func printSummary(w io.Writer, res *kiexport.Result) {
	fmt.Fprintf(w, "\n%s R%s (run %s)\n",
		headerStyle.UnsetPadding().Render(res.Identity.ProjectName), res.Identity.Revision, res.RunID)
	if len(res.Outcomes) == 0 {
		fmt.Fprintln(w, "Nothing was exported.")
		return
	}
	fmt.Fprintln(w, renderOutcomes(res.Outcomes))

	switch {
	case res.Aborted:
		fmt.Fprintln(w, failStyle.UnsetPadding().Render("Stopped after a failed rule check."))
	case res.OK():
		fmt.Fprintln(w, okStyle.UnsetPadding().Render("All exports succeeded."))
	default:
		fmt.Fprintln(w, failStyle.UnsetPadding().Render("Failed: "+strings.Join(res.Status.Failed(), ", ")))
	}
	if res.Snapshot != "" {
		fmt.Fprintf(w, "Source snapshot: %s\n", res.Snapshot)
	}
	if res.Report != "" {
		fmt.Fprintf(w, "Report: %s\n", res.Report)
	}
}

func renderOutcomes(outcomes []*export.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		status := "ok"
		if !o.OK {
			status = "failed"
		}
		archive := "-"
		if o.Archive != "" {
			archive = filepath.Base(o.Archive)
		}
		check := "-"
		if o.Check != nil {
			check = o.Check.String()
		}
		rows = append(rows, []string{o.Command.String(), status, archive, check})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle.UnsetPadding()).
		Headers("COMMAND", "STATUS", "ARCHIVE", "RULE CHECK").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == statusCol && rows[row][statusCol] == "ok":
				return okStyle
			case col == statusCol:
				return failStyle
			}
			return cellStyle
		})
	return t.Render()
}

func renderDescriptors(descs []*export.Descriptor) string {
	rows := make([][]string, 0, len(descs))
	for _, d := range descs {
		variants := "-"
		if len(d.Variants) > 0 {
			variants = strings.Join(d.Variants, ", ")
		}
		rows = append(rows, []string{d.Name, d.Subfolder, d.Input.String(), variants})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle.UnsetPadding()).
		Headers("COMMAND", "FOLDER", "INPUT", "VARIANTS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}
