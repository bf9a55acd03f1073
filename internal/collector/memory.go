// RAM usage sampler: percentage of used over total memory.
// Uses gopsutil when available, otherwise `free` and /proc/meminfo.
package collector

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryUsage returns the used memory percentage, or 0.0.
func (s *Sampler) MemoryUsage(ctx context.Context) float64 {
	var sources []Source[float64]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[float64]{Name: "gopsutil", Fetch: memoryFromLibrary})
	}
	sources = append(sources,
		Source[float64]{Name: "free", Fetch: s.memoryFromFree},
		Source[float64]{Name: "proc/meminfo", Fetch: s.memoryFromMeminfo},
	)
	return firstOf(ctx, s.opts.Logger, "mem_usage_percent", 0.0, sources...)
}

func memoryFromLibrary(ctx context.Context) (float64, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return round2(v.UsedPercent), nil
}

func (s *Sampler) memoryFromFree(ctx context.Context) (float64, error) {
	out, err := s.opts.Runner.Run(ctx, "free")
	if err != nil {
		return 0, err
	}
	total, used, err := parseFree(string(out))
	if err != nil {
		return 0, err
	}
	return round2(float64(used) / float64(total) * 100), nil
}

func (s *Sampler) memoryFromMeminfo(_ context.Context) (float64, error) {
	data, err := fs.ReadFile(s.opts.FS, "proc/meminfo")
	if err != nil {
		return 0, err
	}
	total, err := meminfoKB(string(data), "MemTotal")
	if err != nil {
		return 0, err
	}
	avail, err := meminfoKB(string(data), "MemAvailable")
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, errUnexpectedOutput
	}
	return round2(float64(total-avail) / float64(total) * 100), nil
}

// parseFree extracts total and used from the "Mem:" row of `free` output.
func parseFree(out string) (total, used uint64, err error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "Mem:" {
			continue
		}
		total, err = strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse total: %w", err)
		}
		used, err = strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("parse used: %w", err)
		}
		if total == 0 {
			return 0, 0, errUnexpectedOutput
		}
		return total, used, nil
	}
	return 0, 0, errUnexpectedOutput
}

// meminfoKB returns the value of key from /proc/meminfo content, in kB.
func meminfoKB(content, key string) (uint64, error) {
	for _, line := range strings.Split(content, "\n") {
		name, rest, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) != key {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return 0, errUnexpectedOutput
		}
		return strconv.ParseUint(fields[0], 10, 64)
	}
	return 0, fmt.Errorf("%s not found in meminfo", key)
}
