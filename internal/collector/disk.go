// Disk usage sampler: percentage used on the root filesystem.
// Uses gopsutil when available, otherwise `df /`.
package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// rootMount is the filesystem reported by the disk sampler and the inventory.
const rootMount = "/"

// DiskUsage returns the used percentage of the root filesystem, or 0.
// The gopsutil source is rounded to two decimals; `df` reports whole percent.
func (s *Sampler) DiskUsage(ctx context.Context) float64 {
	var sources []Source[float64]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[float64]{Name: "gopsutil", Fetch: diskFromLibrary})
	}
	sources = append(sources, Source[float64]{Name: "df", Fetch: s.diskFromDf})
	return firstOf(ctx, s.opts.Logger, "disk_usage_percent", 0.0, sources...)
}

func diskFromLibrary(ctx context.Context) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, rootMount)
	if err != nil {
		return 0, err
	}
	return round2(usage.UsedPercent), nil
}

func (s *Sampler) diskFromDf(ctx context.Context) (float64, error) {
	out, err := s.opts.Runner.Run(ctx, "df", rootMount)
	if err != nil {
		return 0, err
	}
	fields, err := dfRow(string(out))
	if err != nil {
		return 0, err
	}
	if len(fields) < 5 {
		return 0, errUnexpectedOutput
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(fields[4], "%"))
	if err != nil {
		return 0, fmt.Errorf("parse use%%: %w", err)
	}
	return float64(pct), nil
}

// dfRow returns the fields of the first data row of df output.
func dfRow(out string) ([]string, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil, errUnexpectedOutput
	}
	// Long device names make df wrap the row; join the continuation.
	return strings.Fields(strings.Join(lines[1:], " ")), nil
}
