package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/geomancy/geo/pkg/checkfile"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/dotenv"
)

// ErrCheckFailed is returned when a check fails.
var ErrCheckFailed = errors.New("check failed")

var (
	debug        bool
	envFiles     []string
	overwrite    bool
	disableColor bool
	workers      int
)

var rootCmd = &cobra.Command{
	Use:   "geo [FILES...]",
	Short: "Validate the environment a project runs in",
	Long: "Geo loads trees of checks from check files (pyproject.toml, geomancy.toml, geomancy.yaml)\n" +
		"and runs them concurrently: environment variables, paths, executables, platform,\n" +
		"Python packages and AWS resources.",
	Version:           Version,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: setup,
	RunE:              runCheck,
	SilenceErrors:     true,
	SilenceUsage:      true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	flags.StringArrayVarP(&envFiles, "env", "e", nil, "environment file to load (repeatable, globs allowed)")
	flags.BoolVar(&overwrite, "overwrite", false, "let environment files replace variables that are already set")
	flags.BoolVar(&disableColor, "disable-color", false, "disable colors in the terminal")
	flags.IntVarP(&workers, "workers", "w", 0, "number of checks run concurrently (default: settings, then one per CPU)")
}

// setup configures logging and loads environment files before any command
// runs.
func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	if overwrite && len(envFiles) == 0 {
		return &usageError{errors.New("--overwrite requires --env")}
	}
	if len(envFiles) == 0 {
		return nil
	}

	paths, err := checkfile.Resolve(envFiles)
	if err != nil {
		return &usageError{err}
	}
	return dotenv.Load(paths, overwrite)
}

// applyFlags overlays command line flags on settings from check files.
func applyFlags(cmd *cobra.Command, s *config.Settings) {
	if cmd.Flags().Changed("workers") {
		s.Workers = workers
	}
	if disableColor {
		s.Color = false
	}
}
