//go:build windows

package setup

import (
	"os"
	"path/filepath"
)

// ResolvePaths returns the install locations for mode.
func ResolvePaths(mode InstallMode) Paths {
	if mode == ModeUser {
		local := os.Getenv("LOCALAPPDATA")
		base := filepath.Join(local, "Pinty")
		return Paths{
			BinDir:     base,
			BinPath:    filepath.Join(base, "pinty-agent.exe"),
			ConfigDir:  base,
			ConfigPath: filepath.Join(base, "config.yaml"),
			DataDir:    base,
		}
	}
	programData := os.Getenv("ProgramData")
	programFiles := os.Getenv("ProgramFiles")
	return Paths{
		BinDir:     filepath.Join(programFiles, "Pinty"),
		BinPath:    filepath.Join(programFiles, "Pinty", "pinty-agent.exe"),
		ConfigDir:  filepath.Join(programData, "Pinty"),
		ConfigPath: filepath.Join(programData, "Pinty", "agent.yaml"),
		DataDir:    filepath.Join(programData, "Pinty"),
	}
}
