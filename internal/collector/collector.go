// Package collector implements the host metric samplers and the static
// inventory collector. Every metric is backed by an ordered list of sources:
// gopsutil first when the host supports it, then OS tools and pseudo-files.
// A sampler never fails; when no source succeeds it returns a fixed sentinel.
package collector

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Sentinel values returned when every source of a metric fails.
const (
	Unknown = "unknown"
)

// Source is one way of obtaining a value of type T.
type Source[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// firstOf tries each source in order and returns the first successful value,
// or sentinel when all of them fail. Panics inside a source count as failures.
func firstOf[T any](ctx context.Context, logger *zap.Logger, metric string, sentinel T, sources ...Source[T]) T {
	for _, src := range sources {
		v, err := try(ctx, src)
		if err == nil {
			return v
		}
		logger.Debug("Metric source failed",
			zap.String("metric", metric),
			zap.String("source", src.Name),
			zap.Error(err))
	}
	logger.Debug("All metric sources failed, using sentinel", zap.String("metric", metric))
	return sentinel
}

func try[T any](ctx context.Context, src Source[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return src.Fetch(ctx)
}

// CommandRunner executes an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Options configures samplers and the inventory collector.
// Zero fields are replaced with host defaults by the constructors.
type Options struct {
	Capabilities Capabilities

	// Window is the measurement interval for rate-based metrics (CPU, network).
	Window time.Duration

	// FS is the host filesystem root used for /proc and /sys reads.
	// Paths are relative, e.g. "proc/stat".
	FS fs.FS

	// Runner executes the fallback OS tools.
	Runner CommandRunner

	// InterfaceCandidates are tried in order when the default route cannot be determined.
	InterfaceCandidates []string

	Logger *zap.Logger
}

// DefaultInterfaceCandidates are common primary interface names on cloud and bare-metal hosts.
var DefaultInterfaceCandidates = []string{"eth0", "ens3", "ens5", "enp0s3", "eno1"}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = time.Second
	}
	if o.FS == nil {
		o.FS = os.DirFS("/")
	}
	if o.Runner == nil {
		o.Runner = execRunner{}
	}
	if o.InterfaceCandidates == nil {
		o.InterfaceCandidates = DefaultInterfaceCandidates
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sleepCtx blocks for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
