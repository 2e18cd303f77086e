//go:build !linux && !darwin && !windows

package platformcheck

import (
	"errors"
	"runtime"
)

func release() (string, error) {
	return "", errors.New("release lookup not supported on " + runtime.GOOS)
}
