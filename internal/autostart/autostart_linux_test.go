//go:build linux

package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var target = Target{
	ExecPath:   "/opt/pinty/pinty-agent",
	ConfigPath: "/etc/pinty/agent.yaml",
	DataDir:    "/var/lib/pinty",
}

func TestRenderUnitSystem(t *testing.T) {
	unit := renderUnit(SystemMode, target)

	assert.Contains(t, unit, "ExecStart=/opt/pinty/pinty-agent -config /etc/pinty/agent.yaml\n")
	assert.Contains(t, unit, "ReadWritePaths=/var/lib/pinty\n")
	assert.Contains(t, unit, "Restart=always\n")
	assert.Contains(t, unit, "WantedBy=multi-user.target\n")
	assert.NotContains(t, unit, "{")
}

func TestRenderUnitUser(t *testing.T) {
	unit := renderUnit(UserMode, target)

	assert.Contains(t, unit, "WantedBy=default.target\n")
	assert.NotContains(t, unit, "ProtectSystem")
	assert.NotContains(t, unit, "{")
}

func TestInstallAndUninstall(t *testing.T) {
	dir := t.TempDir()
	var commands []string
	m := &linuxManager{
		mode:     UserMode,
		unitPath: filepath.Join(dir, "systemd", "user", "pinty-agent.service"),
		run: func(name string, args ...string) error {
			commands = append(commands, name+" "+strings.Join(args, " "))
			return nil
		},
	}

	installed, err := m.IsInstalled()
	require.NoError(t, err)
	assert.False(t, installed)

	tgt := target
	tgt.DataDir = filepath.Join(dir, "data")
	require.NoError(t, m.Install(tgt))

	installed, err = m.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)
	assert.DirExists(t, tgt.DataDir)
	assert.Equal(t, []string{
		"systemctl --user daemon-reload",
		"systemctl --user enable --now pinty-agent",
	}, commands)

	require.NoError(t, m.Uninstall())
	_, err = os.Stat(m.unitPath)
	assert.True(t, os.IsNotExist(err))
}

func TestInstallReportsSystemctlFailure(t *testing.T) {
	m := &linuxManager{
		mode:     SystemMode,
		unitPath: filepath.Join(t.TempDir(), "pinty-agent.service"),
		run: func(name string, args ...string) error {
			if args[0] == "enable" {
				return os.ErrPermission
			}
			return nil
		},
	}

	err := m.Install(Target{ExecPath: "/bin/true", ConfigPath: "/tmp/a.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "systemctl enable --now pinty-agent")
}
