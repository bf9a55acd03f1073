// Process count sampler: number of entries in the process table.
// Uses gopsutil when available, otherwise `ps` and /proc directory entries.
package collector

import (
	"context"
	"io/fs"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessCount returns the number of running processes, or 0.
func (s *Sampler) ProcessCount(ctx context.Context) int {
	var sources []Source[int]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[int]{Name: "gopsutil", Fetch: processesFromLibrary})
	}
	sources = append(sources,
		Source[int]{Name: "ps", Fetch: s.processesFromPs},
		Source[int]{Name: "proc", Fetch: s.processesFromProc},
	)
	return firstOf(ctx, s.opts.Logger, "processes", 0, sources...)
}

func processesFromLibrary(ctx context.Context) (int, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return len(pids), nil
}

func (s *Sampler) processesFromPs(ctx context.Context) (int, error) {
	// pid= suppresses the header line.
	out, err := s.opts.Runner.Run(ctx, "ps", "-e", "-o", "pid=")
	if err != nil {
		return 0, err
	}
	n := countLines(string(out))
	if n == 0 {
		return 0, errUnexpectedOutput
	}
	return n, nil
}

func (s *Sampler) processesFromProc(_ context.Context) (int, error) {
	entries, err := fs.ReadDir(s.opts.FS, "proc")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() && isNumeric(e.Name()) {
			n++
		}
	}
	if n == 0 {
		return 0, errUnexpectedOutput
	}
	return n, nil
}

// countLines returns the number of non-blank lines.
func countLines(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
