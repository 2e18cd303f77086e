package platformcheck

import "runtime"

// SysInfo abstracts system information for testability.
type SysInfo interface {
	OS() string
	Arch() string
	Release() (string, error)
}

// RealSysInfo returns actual system information.
type RealSysInfo struct{}

func (r *RealSysInfo) OS() string   { return runtime.GOOS }
func (r *RealSysInfo) Arch() string { return runtime.GOARCH }

// Release returns the operating system version: the kernel release on
// Linux, the product version on macOS and major.minor.build on Windows.
func (r *RealSysInfo) Release() (string, error) {
	return release()
}

// PlatformName maps a GOOS value to the name used in check files.
func PlatformName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	}
	return goos
}
