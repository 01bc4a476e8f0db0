package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vishnumaiea/kiexport"
	"github.com/vishnumaiea/kiexport/pkg/config"
	"github.com/vishnumaiea/kiexport/pkg/export"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured exports once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := runOptions(cmd, v)
			if err != nil {
				return err
			}

			cyan := color.New(color.FgCyan)
			cyan.Fprintln(cmd.OutOrStdout(), "\nKiExport")
			cyan.Fprintln(cmd.OutOrStdout(), "========")

			res, err := kiexport.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			if !res.OK() {
				return errRunFailed
			}
			return nil
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the exports again whenever the design files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := runOptions(cmd, v)
			if err != nil {
				return err
			}
			// Nobody answers prompts in the background.
			opts.Prompter = nil

			red := color.New(color.FgRed)
			return kiexport.Watch(cmd.Context(), opts, v.GetDuration("debounce"), func(res *kiexport.Result, err error) {
				if err != nil {
					red.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					return
				}
				printSummary(cmd.OutOrStdout(), res)
			})
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Duration("debounce", kiexport.DefaultDebounce, "Quiet period after the last change before exporting")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the supported export commands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), renderDescriptors(export.Descriptors()))
		},
	}
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the built-in configuration as a starting point",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString("config")
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = filepath.Join(v.GetString("project"), config.DefaultFileName)
			}
			if err := config.WriteDefaults(path, force); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration file in use and its run list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := v.GetString("config")
			if path == "" {
				path = filepath.Join(v.GetString("project"), config.DefaultFileName)
			}
			r, err := config.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.Loaded() {
				fmt.Fprintf(out, "Configuration: %s (version %s)\n", r.Path, r.Version())
			} else {
				fmt.Fprintf(out, "Configuration: built-in defaults (version %s)\n", r.Version())
			}
			names := make([]string, 0)
			for _, spec := range r.Commands() {
				names = append(names, spec.String())
			}
			fmt.Fprintf(out, "Run list: %s\n", strings.Join(names, ", "))
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
