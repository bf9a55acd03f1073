// Package state tracks whether the static inventory has been sent in the
// current epoch. The state lives in a marker file outside process memory so
// it survives restarts, and expires after a fixed TTL.
package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scope controls which processes share a marker.
type Scope string

const (
	// ScopeHost shares one marker between all agent processes on the host,
	// so a restart within the TTL does not re-send the inventory.
	ScopeHost Scope = "host"

	// ScopeProcess keys the marker by PID, so every new process sends the
	// inventory once.
	ScopeProcess Scope = "process"
)

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeHost, ScopeProcess:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("invalid marker scope %q (expected \"host\" or \"process\")", s)
	}
}

const markerPrefix = "pinty-agent-static"

// Marker is a time-bounded flag file. Its existence means the static
// inventory was already sent in the current epoch.
type Marker struct {
	path   string
	ttl    time.Duration
	scope  Scope
	logger *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
	now   func() time.Time
}

// NewMarker creates a marker in dir. The file name depends on scope.
func NewMarker(dir string, scope Scope, ttl time.Duration, logger *zap.Logger) *Marker {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Marker{
		path:   filepath.Join(dir, markerName(scope, os.Getpid())),
		ttl:    ttl,
		scope:  scope,
		logger: logger,
		now:    time.Now,
	}
	if scope == ScopeProcess {
		m.sweepStale(dir)
	}
	return m
}

// sweepStale removes process-scoped markers older than the TTL. Their owners
// exited without running the expiry timer or Close.
func (m *Marker) sweepStale(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, markerPrefix+"-*.flag"))
	if err != nil {
		return
	}
	for _, p := range matches {
		info, err := os.Stat(p)
		if err != nil || m.now().Sub(info.ModTime()) < m.ttl {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("Failed to remove stale run-state marker",
				zap.String("path", p),
				zap.Error(err))
			continue
		}
		m.logger.Debug("Removed stale run-state marker", zap.String("path", p))
	}
}

func markerName(scope Scope, pid int) string {
	if scope == ScopeProcess {
		return fmt.Sprintf("%s-%d.flag", markerPrefix, pid)
	}
	return markerPrefix + ".flag"
}

// Path returns the marker file path.
func (m *Marker) Path() string { return m.path }

// IsEpochFresh reports whether the static inventory still has to be sent.
// A marker older than the TTL was left by a process that exited before its
// expiry fired; it is removed and the epoch is treated as fresh.
func (m *Marker) IsEpochFresh() bool {
	info, err := os.Stat(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	if err != nil {
		m.logger.Warn("Cannot stat run-state marker, treating epoch as fresh",
			zap.String("path", m.path),
			zap.Error(err))
		return true
	}
	if m.now().Sub(info.ModTime()) >= m.ttl {
		m.logger.Debug("Removing stale run-state marker", zap.String("path", m.path))
		m.remove()
		return true
	}
	return false
}

// MarkEpochSent creates the marker and schedules its removal after the TTL.
// The removal runs on its own timer and does not depend on the caller.
func (m *Marker) MarkEpochSent() error {
	token := []byte(strconv.FormatInt(m.now().UnixNano(), 10))
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}
	if err := os.WriteFile(m.path, token, 0644); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}

	timer := time.AfterFunc(m.ttl, func() { m.expire(token) })

	// Only the latest timer is kept; an older one would fail the token check.
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = timer
	m.mu.Unlock()

	m.logger.Debug("Run-state marker created",
		zap.String("path", m.path),
		zap.Duration("ttl", m.ttl))
	return nil
}

// expire removes the marker only if it still holds token, so a timer from an
// earlier epoch cannot delete a newer marker.
func (m *Marker) expire(token []byte) {
	data, err := os.ReadFile(m.path)
	if err != nil || !bytes.Equal(data, token) {
		return
	}
	m.remove()
	m.logger.Debug("Run-state marker expired", zap.String("path", m.path))
}

func (m *Marker) remove() {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("Failed to remove run-state marker",
			zap.String("path", m.path),
			zap.Error(err))
	}
}

// Close stops the pending expiry timer. A process-scoped marker is removed
// because no later process can match its PID.
func (m *Marker) Close() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	if m.scope == ScopeProcess {
		m.remove()
	}
}
