package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/checkfile"
	"github.com/geomancy/geo/pkg/checks"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/output"
	"github.com/geomancy/geo/pkg/pool"
)

var checkCmd = &cobra.Command{
	Use:   "check [FILES...]",
	Short: "Run the checks in check files (the default command)",
	Args:  cobra.ArbitraryArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	files, err := loadFiles(args)
	if err != nil {
		return err
	}

	settings, err := mergeSettings(files)
	if err != nil {
		return err
	}
	applyFlags(cmd, &settings)

	root, err := buildTree(files, settings)
	if err != nil {
		return err
	}

	p := pool.New(settings.Workers)
	slog.Debug("running checks", "checks", check.Count(root), "workers", p.Size())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := check.Run(p, root, 0)
	if !output.New(cmd.OutOrStdout(), settings.Color).Watch(ctx, out, settings.PollInterval) {
		return ErrCheckFailed
	}
	return nil
}

// loadFiles decodes the named check files, or the discovered one when none
// are named.
func loadFiles(args []string) ([]*checkfile.File, error) {
	var paths []string
	if len(args) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path, err := checkfile.Discover(wd)
		if err != nil {
			if errors.Is(err, checkfile.ErrNotFound) {
				return nil, fmt.Errorf("%w (looked for %s)", err, strings.Join(checkfile.DefaultPaths, ", "))
			}
			return nil, err
		}
		paths = []string{path}
	} else {
		var err error
		if paths, err = checkfile.Resolve(args); err != nil {
			return nil, &usageError{err}
		}
	}

	files := make([]*checkfile.File, 0, len(paths))
	for _, path := range paths {
		f, err := checkfile.Load(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func mergeSettings(files []*checkfile.File) (config.Settings, error) {
	s := config.Default()
	for _, f := range files {
		if err := s.Merge(f.Config); err != nil {
			return s, fmt.Errorf("%s: %w", f.Path, err)
		}
	}
	return s, nil
}

// buildTree loads one tree per file. Several trees are grouped under a
// synthesized root.
func buildTree(files []*checkfile.File, s config.Settings) (check.Checker, error) {
	reg, err := checks.NewRegistry(s)
	if err != nil {
		return nil, err
	}

	var trees []check.Checker
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
		tree, err := reg.Load(f.Checks, filepath.Base(f.Path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}
		if tree == nil {
			slog.Debug("no checks in file", "path", f.Path)
			continue
		}
		trees = append(trees, tree)
	}

	switch len(trees) {
	case 0:
		return nil, fmt.Errorf("no checks were found in %s", strings.Join(paths, ", "))
	case 1:
		return trees[0], nil
	}

	root, err := check.New(fmt.Sprintf("Checking %d files", len(trees)), nil, trees, check.Options{})
	if err != nil {
		return nil, err
	}
	return root, nil
}
