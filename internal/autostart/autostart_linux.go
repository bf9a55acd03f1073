//go:build linux

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	serviceName    = "pinty-agent"
	systemUnitPath = "/etc/systemd/system/pinty-agent.service"
)

// unitTemplate is the systemd unit file written during installation.
const unitTemplate = `[Unit]
Description=Pinty Monitoring Agent
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={execPath} -config {configPath}
Restart=always
RestartSec=10
SyslogIdentifier=pinty-agent
{hardening}
[Install]
WantedBy={wantedBy}
`

// systemHardening applies only to system units; the agent keeps its marker
// and log file under the data directory.
const systemHardening = `NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=true
ReadWritePaths={dataDir}
PrivateTmp=true
`

// linuxManager implements Manager for Linux using systemd.
type linuxManager struct {
	mode     Mode
	unitPath string
	run      func(name string, args ...string) error
}

// NewWithMode returns a systemd Manager. User mode installs a user unit
// driven by "systemctl --user".
func NewWithMode(mode Mode) Manager {
	m := &linuxManager{mode: mode, unitPath: systemUnitPath, run: runCommand}
	if mode == UserMode {
		dir, err := os.UserConfigDir()
		if err != nil {
			home, _ := os.UserHomeDir()
			dir = filepath.Join(home, ".config")
		}
		m.unitPath = filepath.Join(dir, "systemd", "user", serviceName+".service")
	}
	return m
}

func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ServiceName returns the systemd service name.
func (l *linuxManager) ServiceName() string { return serviceName }

// IsInstalled checks whether the systemd unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// Install writes the unit file, reloads the daemon, then enables and starts the service.
func (l *linuxManager) Install(t Target) error {
	if t.DataDir != "" {
		if err := os.MkdirAll(t.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(l.unitPath), 0755); err != nil {
		return fmt.Errorf("creating unit directory: %w", err)
	}
	if err := os.WriteFile(l.unitPath, []byte(renderUnit(l.mode, t)), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", "--now", serviceName},
	} {
		if err := l.systemctl(args...); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall stops, disables, and removes the service.
func (l *linuxManager) Uninstall() error {
	// Best-effort; the service may already be inactive.
	_ = l.systemctl("disable", "--now", serviceName)

	if err := os.Remove(l.unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	_ = l.systemctl("daemon-reload")
	return nil
}

func (l *linuxManager) systemctl(args ...string) error {
	if l.mode == UserMode {
		args = append([]string{"--user"}, args...)
	}
	if err := l.run("systemctl", args...); err != nil {
		return fmt.Errorf("running systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func renderUnit(mode Mode, t Target) string {
	hardening, wantedBy := "", "default.target"
	if mode == SystemMode {
		hardening = strings.ReplaceAll(systemHardening, "{dataDir}", t.DataDir)
		wantedBy = "multi-user.target"
	}
	return strings.NewReplacer(
		"{execPath}", t.ExecPath,
		"{configPath}", t.ConfigPath,
		"{hardening}", hardening,
		"{wantedBy}", wantedBy,
	).Replace(unitTemplate)
}
