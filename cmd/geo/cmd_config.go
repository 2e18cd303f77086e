package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geomancy/geo/pkg/checkfile"
)

var (
	configTOML bool
	configYAML bool
)

var configCmd = &cobra.Command{
	Use:   "config [FILES...]",
	Short: "Print the effective settings",
	Long: "Print the settings checks run with: the defaults overlaid with the config section\n" +
		"of the named (or discovered) check files and the command line flags.",
	Args: cobra.ArbitraryArgs,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configTOML, "toml", false, "print as TOML (default)")
	configCmd.Flags().BoolVar(&configYAML, "yaml", false, "print as YAML")
	configCmd.MarkFlagsMutuallyExclusive("toml", "yaml")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	files, err := loadFiles(args)
	if err != nil && !(len(args) == 0 && errors.Is(err, checkfile.ErrNotFound)) {
		return err
	}

	settings, err := mergeSettings(files)
	if err != nil {
		return err
	}
	applyFlags(cmd, &settings)

	render := settings.TOML
	if configYAML {
		render = settings.YAML
	}
	text, err := render()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
