package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Source selection modes accepted by ResolveCapabilities.
const (
	SourceAuto     = "auto"
	SourceLibrary  = "library"
	SourceFallback = "fallback"
)

// Capabilities records which data sources are usable on this host.
// It is resolved once at startup and shared by all samplers.
type Capabilities struct {
	// Library is true when gopsutil can read host counters.
	Library bool
}

// ResolveCapabilities decides whether gopsutil sources are used.
// In auto mode gopsutil is tested with two cheap reads.
func ResolveCapabilities(ctx context.Context, mode string) (Capabilities, error) {
	switch mode {
	case SourceLibrary:
		return Capabilities{Library: true}, nil
	case SourceFallback:
		return Capabilities{Library: false}, nil
	case SourceAuto, "":
		return Capabilities{Library: detectLibrary(ctx)}, nil
	default:
		return Capabilities{}, fmt.Errorf("unknown collection source %q", mode)
	}
}

func detectLibrary(ctx context.Context) bool {
	if _, err := cpu.TimesWithContext(ctx, false); err != nil {
		return false
	}
	if _, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		return false
	}
	return true
}
