//go:build !windows

package setup

import "os"

// CheckElevation returns nil for user installs or when running as root.
func CheckElevation(mode InstallMode) error {
	if mode == ModeUser || os.Geteuid() == 0 {
		return nil
	}
	return elevationError("Run with sudo:", "sudo ")
}
