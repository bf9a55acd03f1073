// System uptime sampler: time since last boot as a string.
// Uses gopsutil when available, otherwise /proc/uptime and `uptime -p`.
package collector

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Uptime returns the uptime as "<seconds> seconds" or a human-readable
// duration from `uptime -p`. It returns "unknown" when nothing works.
func (s *Sampler) Uptime(ctx context.Context) string {
	var sources []Source[string]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[string]{Name: "gopsutil", Fetch: uptimeFromLibrary})
	}
	sources = append(sources,
		Source[string]{Name: "proc/uptime", Fetch: s.uptimeFromProc},
		Source[string]{Name: "uptime", Fetch: s.uptimeFromTool},
	)
	return firstOf(ctx, s.opts.Logger, "uptime", Unknown, sources...)
}

func uptimeFromLibrary(ctx context.Context) (string, error) {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d seconds", secs), nil
}

func (s *Sampler) uptimeFromProc(_ context.Context) (string, error) {
	data, err := fs.ReadFile(s.opts.FS, "proc/uptime")
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", errUnexpectedOutput
	}
	return fields[0] + " seconds", nil
}

func (s *Sampler) uptimeFromTool(ctx context.Context) (string, error) {
	out, err := s.opts.Runner.Run(ctx, "uptime", "-p")
	if err != nil {
		return "", err
	}
	v := strings.TrimPrefix(strings.TrimSpace(string(out)), "up ")
	if v == "" {
		return "", errUnexpectedOutput
	}
	return v, nil
}
