//go:build windows

package setup

import "golang.org/x/sys/windows"

// CheckElevation returns nil for user installs or when the process token
// is elevated.
func CheckElevation(mode InstallMode) error {
	if mode == ModeUser {
		return nil
	}
	// The pseudo-token needs no Close.
	if windows.GetCurrentProcessToken().IsElevated() {
		return nil
	}
	return elevationError("Right-click and 'Run as administrator', or from an elevated prompt:", "")
}
