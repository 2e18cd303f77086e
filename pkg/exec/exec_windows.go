//go:build windows

package exec

import "errors"

// ErrExecNotSupported indicates process replacement is not available on Windows.
var ErrExecNotSupported = errors.New("run is not supported on Windows; load the environment with a shell script instead")

// Exec is not supported on Windows, which cannot replace the current process.
func (e *RealExecutor) Exec(name string, args []string) error {
	return ErrExecNotSupported
}
