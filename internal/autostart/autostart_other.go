//go:build !linux && !windows

package autostart

type unsupportedManager struct{}

// NewWithMode returns a Manager whose operations all fail; there is no
// supported service manager on this platform.
func NewWithMode(Mode) Manager { return unsupportedManager{} }

func (unsupportedManager) ServiceName() string { return "pinty-agent" }
func (unsupportedManager) IsInstalled() (bool, error) { return false, errUnsupported }
func (unsupportedManager) Install(Target) error { return errUnsupported }
func (unsupportedManager) Uninstall() error { return errUnsupported }
