package collector

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"
)

var errNoInterface = errors.New("no network interface found")

// InterfacePolicy selects the network interface whose counters are sampled.
type InterfacePolicy interface {
	Name() string
	Select(ctx context.Context) (string, error)
}

// InterfaceResolver tries its policies in order and returns the first interface found.
type InterfaceResolver struct {
	policies []InterfacePolicy
	logger   *zap.Logger
}

// NewInterfaceResolver creates a resolver over the given ordered policies.
func NewInterfaceResolver(logger *zap.Logger, policies ...InterfacePolicy) *InterfaceResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterfaceResolver{policies: policies, logger: logger}
}

// DefaultInterfaceResolver prefers the default route (from `ip route`, then
// /proc/net/route) and falls back to the first existing candidate name.
func DefaultInterfaceResolver(opts Options) *InterfaceResolver {
	return NewInterfaceResolver(opts.Logger,
		DefaultRoutePolicy{Runner: opts.Runner},
		ProcRoutePolicy{FS: opts.FS},
		NamedPolicy{FS: opts.FS, Candidates: opts.InterfaceCandidates},
	)
}

// Resolve returns the selected interface name.
func (r *InterfaceResolver) Resolve(ctx context.Context) (string, error) {
	for _, p := range r.policies {
		name, err := p.Select(ctx)
		if err == nil && name != "" {
			return name, nil
		}
		r.logger.Debug("Interface policy found nothing",
			zap.String("policy", p.Name()),
			zap.Error(err))
	}
	return "", errNoInterface
}

// DefaultRoutePolicy reads the device of the default route from `ip route show default`.
type DefaultRoutePolicy struct {
	Runner CommandRunner
}

func (p DefaultRoutePolicy) Name() string { return "ip-route" }

func (p DefaultRoutePolicy) Select(ctx context.Context) (string, error) {
	out, err := p.Runner.Run(ctx, "ip", "route", "show", "default")
	if err != nil {
		return "", err
	}
	return parseDefaultRouteDev(string(out))
}

// parseDefaultRouteDev returns the "dev" operand of the first default route.
func parseDefaultRouteDev(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}
		for i := 0; i < len(fields)-1; i++ {
			if fields[i] == "dev" {
				return fields[i+1], nil
			}
		}
	}
	return "", errNoInterface
}

// ProcRoutePolicy finds the interface of the 0.0.0.0 destination in /proc/net/route.
type ProcRoutePolicy struct {
	FS fs.FS
}

func (p ProcRoutePolicy) Name() string { return "proc-route" }

func (p ProcRoutePolicy) Select(_ context.Context) (string, error) {
	data, err := fs.ReadFile(p.FS, "proc/net/route")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "00000000" {
			return fields[0], nil
		}
	}
	return "", errNoInterface
}

// NamedPolicy picks the first candidate present under /sys/class/net.
type NamedPolicy struct {
	FS         fs.FS
	Candidates []string
}

func (p NamedPolicy) Name() string { return "named" }

func (p NamedPolicy) Select(_ context.Context) (string, error) {
	for _, name := range p.Candidates {
		if _, err := fs.Stat(p.FS, path.Join("sys/class/net", name)); err == nil {
			return name, nil
		}
	}
	return "", errNoInterface
}
