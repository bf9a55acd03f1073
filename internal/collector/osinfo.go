// OS description sources for the static inventory.
// Tries gopsutil host info, then lsb_release, then /etc/os-release, then uname.
package collector

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

func (c *Inventory) systemSources() []Source[string] {
	var sources []Source[string]
	if c.opts.Capabilities.Library {
		sources = append(sources, Source[string]{Name: "gopsutil", Fetch: systemFromLibrary})
	}
	return append(sources,
		Source[string]{Name: "lsb_release", Fetch: c.systemFromLsbRelease},
		Source[string]{Name: "os-release", Fetch: c.systemFromOSRelease},
		Source[string]{Name: "uname", Fetch: c.systemFromUname},
	)
}

func systemFromLibrary(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	desc := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if desc == "" {
		return "", errors.New("platform not reported")
	}
	return desc, nil
}

func (c *Inventory) systemFromLsbRelease(ctx context.Context) (string, error) {
	out, err := c.opts.Runner.Run(ctx, "lsb_release", "-ds")
	if err != nil {
		return "", err
	}
	return nonEmpty(strings.Trim(strings.TrimSpace(string(out)), "\""))
}

func (c *Inventory) systemFromOSRelease(_ context.Context) (string, error) {
	data, err := fs.ReadFile(c.opts.FS, "etc/os-release")
	if err != nil {
		return "", err
	}
	fields := parseKeyValueFile(string(data))
	// PRETTY_NAME carries the version; NAME alone is the last resort.
	for _, key := range []string{"PRETTY_NAME", "NAME"} {
		if v, ok := fields[key]; ok {
			if v = strings.Trim(v, "\""); v != "" {
				return v, nil
			}
		}
	}
	return "", errUnexpectedOutput
}

func (c *Inventory) systemFromUname(ctx context.Context) (string, error) {
	out, err := c.opts.Runner.Run(ctx, "uname", "-sr")
	if err != nil {
		return "", err
	}
	return nonEmpty(strings.TrimSpace(string(out)))
}

// parseKeyValueFile parses a file with KEY=VALUE lines (like /etc/os-release).
func parseKeyValueFile(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
	}
	return fields
}

func nonEmpty(s string) (string, error) {
	if s == "" {
		return "", errUnexpectedOutput
	}
	return s, nil
}
