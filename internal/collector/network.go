// Network I/O sampler: upload/download rates and cumulative byte totals.
// Uses gopsutil aggregate counters when available, otherwise the sysfs
// statistics of a single resolved interface.
package collector

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/pinty-monitor/agent/internal/models"
)

type counterReader func(ctx context.Context) (models.NetworkCounterSnapshot, error)

// Network measures byte rates over one window. It returns all zeros when no
// counters can be read.
func (s *Sampler) Network(ctx context.Context) models.NetworkUsage {
	var sources []Source[models.NetworkUsage]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[models.NetworkUsage]{
			Name: "gopsutil",
			Fetch: func(ctx context.Context) (models.NetworkUsage, error) {
				return measureNetwork(ctx, s.opts.Window, libraryCounters)
			},
		})
	}
	sources = append(sources, Source[models.NetworkUsage]{Name: "sysfs", Fetch: s.networkFromSysfs})
	return firstOf(ctx, s.opts.Logger, "network", models.NetworkUsage{}, sources...)
}

func (s *Sampler) networkFromSysfs(ctx context.Context) (models.NetworkUsage, error) {
	// Resolved once so both snapshots come from the same interface.
	iface, err := s.resolver.Resolve(ctx)
	if err != nil {
		return models.NetworkUsage{}, err
	}
	return measureNetwork(ctx, s.opts.Window, func(context.Context) (models.NetworkCounterSnapshot, error) {
		return readSysfsCounters(s.opts.FS, iface)
	})
}

// measureNetwork takes two snapshots one window apart and derives the rates.
func measureNetwork(ctx context.Context, window time.Duration, read counterReader) (models.NetworkUsage, error) {
	first, err := read(ctx)
	if err != nil {
		return models.NetworkUsage{}, err
	}
	if err := sleepCtx(ctx, window); err != nil {
		return models.NetworkUsage{}, err
	}
	second, err := read(ctx)
	if err != nil {
		return models.NetworkUsage{}, err
	}
	return networkRates(first, second), nil
}

// networkRates returns second - first for both directions. A counter reset
// produces a negative rate, which is passed through unchanged.
func networkRates(first, second models.NetworkCounterSnapshot) models.NetworkUsage {
	return models.NetworkUsage{
		UpSpeed:   int64(second.BytesSent) - int64(first.BytesSent),
		DownSpeed: int64(second.BytesRecv) - int64(first.BytesRecv),
		TotalUp:   second.BytesSent,
		TotalDown: second.BytesRecv,
	}
}

func libraryCounters(ctx context.Context) (models.NetworkCounterSnapshot, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return models.NetworkCounterSnapshot{}, err
	}
	if len(counters) == 0 {
		return models.NetworkCounterSnapshot{}, errUnexpectedOutput
	}
	return models.NetworkCounterSnapshot{
		BytesSent: counters[0].BytesSent,
		BytesRecv: counters[0].BytesRecv,
	}, nil
}

func readSysfsCounters(fsys fs.FS, iface string) (models.NetworkCounterSnapshot, error) {
	tx, err := readCounter(fsys, iface, "tx_bytes")
	if err != nil {
		return models.NetworkCounterSnapshot{}, err
	}
	rx, err := readCounter(fsys, iface, "rx_bytes")
	if err != nil {
		return models.NetworkCounterSnapshot{}, err
	}
	return models.NetworkCounterSnapshot{BytesSent: tx, BytesRecv: rx}, nil
}

func readCounter(fsys fs.FS, iface, name string) (uint64, error) {
	data, err := fs.ReadFile(fsys, path.Join("sys/class/net", iface, "statistics", name))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s of %s: %w", name, iface, err)
	}
	return v, nil
}
