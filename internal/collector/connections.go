package collector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/net"
)

// ConnectionCount returns the number of active TCP sockets, or 0.
// Listening sockets are not counted.
func (s *Sampler) ConnectionCount(ctx context.Context) int {
	var sources []Source[int]
	if s.opts.Capabilities.Library {
		sources = append(sources, Source[int]{Name: "gopsutil", Fetch: connectionsFromLibrary})
	}
	sources = append(sources,
		Source[int]{Name: "ss", Fetch: s.connectionsFromSs},
		Source[int]{Name: "netstat", Fetch: s.connectionsFromNetstat},
	)
	return firstOf(ctx, s.opts.Logger, "connections", 0, sources...)
}

func connectionsFromLibrary(ctx context.Context) (int, error) {
	conns, err := net.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range conns {
		if c.Status != "LISTEN" {
			n++
		}
	}
	return n, nil
}

func (s *Sampler) connectionsFromSs(ctx context.Context) (int, error) {
	out, err := s.opts.Runner.Run(ctx, "ss", "-tn")
	if err != nil {
		return 0, err
	}
	return countSsEntries(string(out)), nil
}

func (s *Sampler) connectionsFromNetstat(ctx context.Context) (int, error) {
	out, err := s.opts.Runner.Run(ctx, "netstat", "-tn")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "tcp") {
			n++
		}
	}
	return n, nil
}

// countSsEntries counts socket rows in ss output, excluding the header when present.
func countSsEntries(out string) int {
	n := 0
	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i == 0 && (strings.HasPrefix(line, "State") || strings.HasPrefix(line, "Recv-Q")) {
			continue
		}
		n++
	}
	return n
}
