//go:build !windows

package setup

import (
	"os"
	"path/filepath"
)

// ResolvePaths returns the install locations for mode. The config paths
// match what config.Locate searches.
func ResolvePaths(mode InstallMode) Paths {
	if mode == ModeUser {
		home, _ := os.UserHomeDir()
		base := filepath.Join(home, ".pinty")
		return Paths{
			BinDir:     filepath.Join(base, "bin"),
			BinPath:    filepath.Join(base, "bin", "pinty-agent"),
			ConfigDir:  base,
			ConfigPath: filepath.Join(base, "config.yaml"),
			DataDir:    filepath.Join(base, "data"),
		}
	}
	return Paths{
		BinDir:     "/opt/pinty",
		BinPath:    "/opt/pinty/pinty-agent",
		ConfigDir:  "/etc/pinty",
		ConfigPath: "/etc/pinty/agent.yaml",
		DataDir:    "/var/lib/pinty",
	}
}
