package collector

import (
	"context"

	"github.com/pinty-monitor/agent/internal/models"
)

// Sampler measures the per-cycle metrics of the local host.
type Sampler struct {
	opts     Options
	resolver *InterfaceResolver
}

// NewSampler creates a sampler. Zero option fields get host defaults.
func NewSampler(opts Options) *Sampler {
	opts = opts.withDefaults()
	return &Sampler{
		opts:     opts,
		resolver: DefaultInterfaceResolver(opts),
	}
}

// Dynamic samples every per-cycle metric except network usage, sequentially.
// The CPU measurement blocks for one window.
func (s *Sampler) Dynamic(ctx context.Context) models.DynamicSample {
	return models.DynamicSample{
		CPUUsage:         s.CPUUsage(ctx),
		MemUsagePercent:  s.MemoryUsage(ctx),
		DiskUsagePercent: s.DiskUsage(ctx),
		Uptime:           s.Uptime(ctx),
		LoadAvg:          s.LoadAverage(ctx),
		Processes:        s.ProcessCount(ctx),
		Connections:      s.ConnectionCount(ctx),
	}
}
