package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/vishnumaiea/kiexport"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errRunFailed makes the process exit non-zero after a run that recorded
// failures. The details were already printed.
var errRunFailed = errors.New("one or more exports failed")

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(kiexport.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Every flag is also readable from a
// KIEXPORT_ environment variable: --kicad-cli from KIEXPORT_KICAD_CLI.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KIEXPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "kiexport",
		Short: "Export manufacturing files from KiCad projects",
		Long: "Drives kicad-cli to produce Gerbers, drill files, placement files, PDFs, " +
			"bills of materials, 3D models, renders and DRC/ERC reports, and files them " +
			"into a versioned directory tree per revision and date.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
				return err
			}
			return v.BindPFlags(cmd.Flags())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringP("project", "p", ".", "KiCad project directory")
	pf.String("config", "", "Configuration file (default <project>/kiexport.json)")
	pf.String("kicad-cli", "", "kicad-cli executable (default from PATH)")
	pf.String("python", "", "Python interpreter for the iBoM plugin")
	pf.String("ibom-plugin", "", "Path to the InteractiveHtmlBom generate_interactive_bom.py")
	pf.String("log-format", "color", "Log output: color, text, json or logfmt")

	rootCmd.AddCommand(
		newRunCmd(v),
		newWatchCmd(v),
		newListCmd(),
		newConfigCmd(v),
	)
	return rootCmd
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("pcb", "", "Board file (default derived from the project)")
	f.String("sch", "", "Schematic file (default derived from the project)")
	f.StringP("output", "o", "", "Base output directory, overrides the configured one")
	f.StringSliceP("commands", "c", nil, "Commands to run, e.g. gerbers,drills,ddd:VRML (default from config)")
	f.Bool("clean", false, "Remove the revision directories before exporting")
	f.Bool("no-overwrite", false, "Always create a new numbered artifact directory")
	f.Bool("dry-run", false, "Print the tool commands without running them")
	f.Bool("no-snapshot", false, "Skip the source snapshot")
	f.Bool("no-report", false, "Skip writing report.md")
	f.BoolP("yes", "y", false, "Continue after failed rule checks without asking")
}

// runOptions assembles kiexport.Options from the bound flags and
// environment.
func runOptions(cmd *cobra.Command, v *viper.Viper) (kiexport.Options, error) {
	logger, err := newLogger(v.GetString("log-format"))
	if err != nil {
		return kiexport.Options{}, err
	}

	opts := kiexport.Options{
		ProjectDir:    v.GetString("project"),
		ConfigPath:    v.GetString("config"),
		PCBFile:       v.GetString("pcb"),
		SchematicFile: v.GetString("sch"),
		OutputDir:     v.GetString("output"),
		Commands:      v.GetStringSlice("commands"),
		Clean:         v.GetBool("clean"),
		NoOverwrite:   v.GetBool("no-overwrite"),
		DryRun:        v.GetBool("dry-run"),
		NoSnapshot:    v.GetBool("no-snapshot"),
		NoReport:      v.GetBool("no-report"),
		KiCadCLI:      v.GetString("kicad-cli"),
		Python:        v.GetString("python"),
		IBOMPlugin:    v.GetString("ibom-plugin"),
		ToolOutput:    cmd.OutOrStdout(),
		Logger:        logger,
	}
	if !v.GetBool("yes") {
		opts.Prompter = stdinPrompter(cmd)
	}
	return opts, nil
}
