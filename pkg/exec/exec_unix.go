//go:build unix

package exec

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// execFunc is unix.Exec, swapped out in tests.
var execFunc = unix.Exec

// Exec replaces the current process with the specified command.
func (e *RealExecutor) Exec(name string, args []string) error {
	binary, err := lookPath(name)
	if err != nil {
		return err
	}

	// argv[0] is the program name by convention.
	argv := append([]string{name}, args...)
	slog.Debug("replacing process", "binary", binary, "args", args)
	// #nosec G204 -- the command comes from the user's own command line.
	return execFunc(binary, argv, environ())
}
