package main

import (
	"errors"
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrCheckFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// usageError marks errors caused by invalid command line use.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitFailed
}
