//go:build windows

package autostart

import (
	"errors"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sys/windows/registry"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	serviceName    = "PintyAgent"
	serviceDisplay = "Pinty Monitoring Agent"
	serviceDesc    = "Pinty host agent - reports system metrics to the monitoring endpoint"

	runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`
)

// windowsManager implements Manager for Windows. System mode registers a
// service with the Service Control Manager; user mode adds a per-user Run
// key entry started at logon.
type windowsManager struct {
	mode Mode
}

// NewWithMode returns a Windows Manager for the given mode.
func NewWithMode(mode Mode) Manager {
	return &windowsManager{mode: mode}
}

// ServiceName returns the Windows service name.
func (w *windowsManager) ServiceName() string { return serviceName }

// IsInstalled checks whether the service or Run entry is registered.
func (w *windowsManager) IsInstalled() (bool, error) {
	if w.mode == UserMode {
		k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
		if err != nil {
			return false, fmt.Errorf("opening Run key: %w", err)
		}
		defer k.Close()
		_, _, err = k.GetStringValue(serviceName)
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}

	m, err := mgr.Connect()
	if err != nil {
		return false, fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return false, nil
	}
	s.Close()
	return true, nil
}

// Install registers the agent and starts it immediately.
func (w *windowsManager) Install(t Target) error {
	if w.mode == UserMode {
		return installUser(t)
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.CreateService(serviceName, t.ExecPath, mgr.Config{
		DisplayName: serviceDisplay,
		Description: serviceDesc,
		StartType:   mgr.StartAutomatic,
	}, "-config", t.ConfigPath)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	return nil
}

func installUser(t Target) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("opening Run key: %w", err)
	}
	defer k.Close()

	cmdline := fmt.Sprintf("%q -config %q", t.ExecPath, t.ConfigPath)
	if err := k.SetStringValue(serviceName, cmdline); err != nil {
		return fmt.Errorf("writing Run entry: %w", err)
	}
	if err := exec.Command(t.ExecPath, "-config", t.ConfigPath).Start(); err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}
	return nil
}

// Uninstall stops and removes the service or Run entry.
func (w *windowsManager) Uninstall() error {
	if w.mode == UserMode {
		k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
		if err != nil {
			return fmt.Errorf("opening Run key: %w", err)
		}
		defer k.Close()
		if err := k.DeleteValue(serviceName); err != nil && !errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("removing Run entry: %w", err)
		}
		return nil
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("opening service: %w", err)
	}
	defer s.Close()

	// Ignore errors if it is already stopped.
	_, _ = s.Control(svc.Stop)
	time.Sleep(2 * time.Second)

	if err := s.Delete(); err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}
	return nil
}
