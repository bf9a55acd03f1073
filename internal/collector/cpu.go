// CPU usage sampler: overall utilization over one measurement window.
// Uses gopsutil when available, otherwise two /proc/stat reads.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

var errUnexpectedOutput = errors.New("unexpected output format")

// cpuTimes is the aggregate idle and total jiffies from the first line of /proc/stat.
type cpuTimes struct {
	idle  uint64
	total uint64
}

// CPUUsage returns the overall CPU utilization percentage, or 0.0.
func (s *Sampler) CPUUsage(ctx context.Context) float64 {
	var sources []Source[float64]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[float64]{Name: "gopsutil", Fetch: s.cpuFromLibrary})
	}
	sources = append(sources, Source[float64]{Name: "proc/stat", Fetch: s.cpuFromProcStat})
	return firstOf(ctx, s.opts.Logger, "cpu_usage", 0.0, sources...)
}

func (s *Sampler) cpuFromLibrary(ctx context.Context) (float64, error) {
	// Blocks for the window to compute the percentage.
	overall, err := cpu.PercentWithContext(ctx, s.opts.Window, false)
	if err != nil {
		return 0, err
	}
	if len(overall) == 0 {
		return 0, errUnexpectedOutput
	}
	return round2(overall[0]), nil
}

func (s *Sampler) cpuFromProcStat(ctx context.Context) (float64, error) {
	first, err := readCPUTimes(s.opts.FS)
	if err != nil {
		return 0, err
	}
	if err := sleepCtx(ctx, s.opts.Window); err != nil {
		return 0, err
	}
	second, err := readCPUTimes(s.opts.FS)
	if err != nil {
		return 0, err
	}
	return cpuPercent(first, second)
}

// cpuPercent computes ((total2-total1) - (idle2-idle1)) / (total2-total1) * 100.
func cpuPercent(first, second cpuTimes) (float64, error) {
	total := float64(second.total) - float64(first.total)
	if total <= 0 {
		return 0, fmt.Errorf("no cpu time elapsed between samples")
	}
	idle := float64(second.idle) - float64(first.idle)
	return round2((total - idle) / total * 100), nil
}

func readCPUTimes(fsys fs.FS) (cpuTimes, error) {
	data, err := fs.ReadFile(fsys, "proc/stat")
	if err != nil {
		return cpuTimes{}, err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return parseCPUTimes(line)
}

// parseCPUTimes parses "cpu  user nice system idle ..." using the first four counters.
func parseCPUTimes(line string) (cpuTimes, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "cpu" {
		return cpuTimes{}, errUnexpectedOutput
	}
	var t cpuTimes
	for i := 1; i <= 4; i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return cpuTimes{}, fmt.Errorf("parse cpu field %d: %w", i, err)
		}
		t.total += v
		if i == 4 {
			t.idle = v
		}
	}
	return t, nil
}
