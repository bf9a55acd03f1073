// Package autostart registers the agent with the host's service manager so
// it starts at boot and is restarted when it exits.
package autostart

import "errors"

// Mode determines whether the service is installed system-wide or per-user.
type Mode int

const (
	SystemMode Mode = iota // System-wide service (requires root/admin)
	UserMode               // Per-user service
)

// Target describes what the service manager should run.
type Target struct {
	ExecPath   string
	ConfigPath string
	DataDir    string
}

// Manager provides platform-specific autostart installation.
type Manager interface {
	IsInstalled() (bool, error)
	Install(t Target) error
	Uninstall() error
	ServiceName() string
}

var errUnsupported = errors.New("autostart is not supported on this platform")
