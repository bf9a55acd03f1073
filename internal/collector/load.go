package collector

import (
	"context"
	"io/fs"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/load"
)

// LoadAverage returns the 1-minute load average, or 0.0.
func (s *Sampler) LoadAverage(ctx context.Context) float64 {
	var sources []Source[float64]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[float64]{Name: "gopsutil", Fetch: loadFromLibrary})
	}
	sources = append(sources, Source[float64]{Name: "proc/loadavg", Fetch: s.loadFromProc})
	return firstOf(ctx, s.opts.Logger, "load_avg", 0.0, sources...)
}

func loadFromLibrary(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}

func (s *Sampler) loadFromProc(_ context.Context) (float64, error) {
	data, err := fs.ReadFile(s.opts.FS, "proc/loadavg")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, errUnexpectedOutput
	}
	return strconv.ParseFloat(fields[0], 64)
}
