// Package exec replaces the current process with a command, used by
// "geo run" once the environment files are loaded.
package exec

import (
	"errors"
	"os"
	"os/exec"
)

// ErrNoCommand is returned when no command is given.
var ErrNoCommand = errors.New("no command given")

// Executor handles process replacement.
type Executor interface {
	// Exec replaces the current process with the specified command.
	// On Unix this uses execve. On Windows it returns an error.
	Exec(name string, args []string) error
}

// RealExecutor is the production implementation.
type RealExecutor struct{}

// Split separates a command line into the program and its arguments.
func Split(argv []string) (string, []string, error) {
	if len(argv) == 0 || argv[0] == "" {
		return "", nil, ErrNoCommand
	}
	return argv[0], argv[1:], nil
}

// lookPath finds the executable in PATH.
func lookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// environ returns the current environment, including variables loaded
// from environment files.
func environ() []string {
	return os.Environ()
}
