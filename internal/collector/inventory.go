package collector

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/pinty-monitor/agent/internal/models"
)

// Inventory collects host facts that do not change while the agent runs.
// Each field has its own source chain; a failing field never blocks the others.
type Inventory struct {
	opts Options
}

// NewInventory creates an inventory collector. Zero option fields get host defaults.
func NewInventory(opts Options) *Inventory {
	return &Inventory{opts: opts.withDefaults()}
}

// Collect gathers the static inventory.
func (c *Inventory) Collect(ctx context.Context) models.StaticInventory {
	log := c.opts.Logger
	lib := c.opts.Capabilities.Library

	return models.StaticInventory{
		CPUModel:       firstOf(ctx, log, "cpu_model", Unknown, withLibrary(lib, cpuModelFromLibrary, Source[string]{Name: "proc/cpuinfo", Fetch: c.cpuModelFromProc})...),
		CPUCores:       firstOf(ctx, log, "cpu_cores", 0, withLibrary(lib, cpuCoresFromLibrary, Source[int]{Name: "nproc", Fetch: c.cpuCoresFromNproc})...),
		MemTotalBytes:  firstOf(ctx, log, "mem_total_bytes", uint64(0), withLibrary(lib, memTotalFromLibrary, Source[uint64]{Name: "proc/meminfo", Fetch: c.memTotalFromProc})...),
		DiskTotalBytes: firstOf(ctx, log, "disk_total_bytes", uint64(0), withLibrary(lib, diskTotalFromLibrary, Source[uint64]{Name: "df", Fetch: c.diskTotalFromDf})...),
		System:         firstOf(ctx, log, "system", Unknown, c.systemSources()...),
		Arch:           firstOf(ctx, log, "arch", Unknown, withLibrary(lib, archFromLibrary, Source[string]{Name: "uname", Fetch: c.archFromUname})...),
	}
}

// withLibrary prepends the gopsutil source when the library is usable.
func withLibrary[T any](lib bool, library func(context.Context) (T, error), fallbacks ...Source[T]) []Source[T] {
	if !lib {
		return fallbacks
	}
	return append([]Source[T]{{Name: "gopsutil", Fetch: library}}, fallbacks...)
}

func cpuModelFromLibrary(ctx context.Context) (string, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errUnexpectedOutput
	}
	return nonEmpty(strings.TrimSpace(infos[0].ModelName))
}

func (c *Inventory) cpuModelFromProc(_ context.Context) (string, error) {
	data, err := fs.ReadFile(c.opts.FS, "proc/cpuinfo")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.TrimSpace(key) == "model name" {
			return nonEmpty(strings.TrimSpace(value))
		}
	}
	return "", errUnexpectedOutput
}

func cpuCoresFromLibrary(ctx context.Context) (int, error) {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errUnexpectedOutput
	}
	return n, nil
}

func (c *Inventory) cpuCoresFromNproc(ctx context.Context) (int, error) {
	out, err := c.opts.Runner.Run(ctx, "nproc")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(out)))
}

func memTotalFromLibrary(ctx context.Context) (uint64, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return v.Total, nil
}

func (c *Inventory) memTotalFromProc(_ context.Context) (uint64, error) {
	data, err := fs.ReadFile(c.opts.FS, "proc/meminfo")
	if err != nil {
		return 0, err
	}
	kb, err := meminfoKB(string(data), "MemTotal")
	if err != nil {
		return 0, err
	}
	return kb * 1024, nil
}

func diskTotalFromLibrary(ctx context.Context) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, rootMount)
	if err != nil {
		return 0, err
	}
	return usage.Total, nil
}

func (c *Inventory) diskTotalFromDf(ctx context.Context) (uint64, error) {
	out, err := c.opts.Runner.Run(ctx, "df", "-B1", rootMount)
	if err != nil {
		return 0, err
	}
	fields, err := dfRow(string(out))
	if err != nil {
		return 0, err
	}
	if len(fields) < 2 {
		return 0, errUnexpectedOutput
	}
	total, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse df size: %w", err)
	}
	return total, nil
}

func archFromLibrary(_ context.Context) (string, error) {
	arch, err := host.KernelArch()
	if err != nil {
		return "", err
	}
	return nonEmpty(strings.TrimSpace(arch))
}

func (c *Inventory) archFromUname(ctx context.Context) (string, error) {
	out, err := c.opts.Runner.Run(ctx, "uname", "-m")
	if err != nil {
		return "", err
	}
	return nonEmpty(strings.TrimSpace(string(out)))
}
