package main

import (
	"github.com/spf13/cobra"

	"github.com/geomancy/geo/pkg/exec"
)

// executor replaces the process; swapped out in tests.
var executor exec.Executor = &exec.RealExecutor{}

var runCmd = &cobra.Command{
	Use:   "run [-e FILE]... [--] COMMAND [ARGS...]",
	Short: "Run a command with environment files loaded",
	Args:  cobra.ArbitraryArgs,
	RunE:  runRun,
}

func init() {
	// Flags after the command belong to the command.
	runCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	name, cmdArgs, err := exec.Split(args)
	if err != nil {
		return &usageError{err}
	}
	return executor.Exec(name, cmdArgs)
}
