// Package kiexport produces the manufacturing and documentation artifacts
// of a KiCad project (Gerbers, drill files, placement files, PDFs, bills
// of materials, 3D models, renders and rule-check reports) by driving
// kicad-cli, and files them into a versioned directory tree:
//
//	<base>/R<rev>/<YYYY-MM-DD>/<Subfolder>/<project>-R<rev>-<suffix>.<ext>
//
// The CLI lives in cmd/kiexport; this root package exposes the same run as
// a Go API.
//
// # Quick start
//
//	result, err := kiexport.Run(ctx, kiexport.Options{
//	    ProjectDir: "hardware/sensor-board",
//	    Commands:   []string{"gerbers", "drills", "pcb_drc"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for name, ok := range result.Status.All() {
//	    fmt.Println(name, ok)
//	}
//
// # Configuration
//
// Options for every artifact type come from kiexport.json next to the
// project, layered over built-in defaults key by key. Keys starting with
// "--" are passed to kicad-cli; keys starting with "kie_" steer the
// exporter itself. See package config.
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive progress
// messages. A nil Logger silences all output.
//
// # Rule checks
//
// DRC and ERC output is scanned for the "Found N violations" summary. A
// failed check marks the command as failed and asks [Options.Prompter]
// whether to continue; without a prompter the run continues.
package kiexport
