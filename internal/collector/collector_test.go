package collector

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pinty-monitor/agent/internal/models"
)

// fakeRunner maps "name arg..." to canned stdout. Unknown commands fail.
type fakeRunner map[string]string

func (f fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	out, ok := f[key]
	if !ok {
		return nil, errors.New("exec: \"" + name + "\": executable file not found in $PATH")
	}
	return []byte(out), nil
}

// sequenceFS serves successive contents for files listed in seq and
// falls back to base for everything else.
type sequenceFS struct {
	base  fstest.MapFS
	seq   map[string][]string
	reads map[string]int
}

func newSequenceFS(base fstest.MapFS, seq map[string][]string) *sequenceFS {
	if base == nil {
		base = fstest.MapFS{}
	}
	return &sequenceFS{base: base, seq: seq, reads: map[string]int{}}
}

func (s *sequenceFS) Open(name string) (fs.File, error) {
	contents, ok := s.seq[name]
	if !ok {
		return s.base.Open(name)
	}
	i := s.reads[name]
	if i >= len(contents) {
		i = len(contents) - 1
	}
	s.reads[name]++
	return fstest.MapFS{name: {Data: []byte(contents[i])}}.Open(name)
}

func fallbackOptions(fsys fs.FS, runner CommandRunner) Options {
	return Options{
		Capabilities: Capabilities{Library: false},
		Window:       time.Millisecond,
		FS:           fsys,
		Runner:       runner,
	}
}

func TestSamplersReturnSentinelsWhenNoSourceWorks(t *testing.T) {
	opts := fallbackOptions(fstest.MapFS{}, fakeRunner{})
	s := NewSampler(opts)
	ctx := context.Background()

	assert.Equal(t, 0.0, s.CPUUsage(ctx))
	assert.Equal(t, 0.0, s.MemoryUsage(ctx))
	assert.Equal(t, 0.0, s.DiskUsage(ctx))
	assert.Equal(t, "unknown", s.Uptime(ctx))
	assert.Equal(t, 0.0, s.LoadAverage(ctx))
	assert.Equal(t, 0, s.ProcessCount(ctx))
	assert.Equal(t, 0, s.ConnectionCount(ctx))
	assert.Equal(t, models.NetworkUsage{}, s.Network(ctx))

	inv := NewInventory(opts).Collect(ctx)
	assert.Equal(t, models.StaticInventory{
		CPUModel: "unknown",
		System:   "unknown",
		Arch:     "unknown",
	}, inv)
}

func TestFirstOf(t *testing.T) {
	ctx := context.Background()
	failing := Source[int]{Name: "failing", Fetch: func(context.Context) (int, error) {
		return 0, errors.New("boom")
	}}
	panicking := Source[int]{Name: "panicking", Fetch: func(context.Context) (int, error) {
		panic("nil map")
	}}
	working := Source[int]{Name: "working", Fetch: func(context.Context) (int, error) {
		return 7, nil
	}}

	assert.Equal(t, 7, firstOf(ctx, zap.NewNop(), "m", -1, failing, panicking, working))
	assert.Equal(t, -1, firstOf(ctx, zap.NewNop(), "m", -1, failing, panicking))
	assert.Equal(t, -1, firstOf[int](ctx, zap.NewNop(), "m", -1))
}

func TestCPUUsageFromProcStat(t *testing.T) {
	fsys := newSequenceFS(nil, map[string][]string{
		"proc/stat": {
			"cpu  100 0 100 800 0 0 0 0\ncpu0 50 0 50 400\n",
			"cpu  150 0 150 900 0 0 0 0\ncpu0 75 0 75 450\n",
		},
	})
	s := NewSampler(fallbackOptions(fsys, fakeRunner{}))

	// total 1000 -> 1200, idle 800 -> 900: (200 - 100) / 200 = 50%
	assert.Equal(t, 50.0, s.CPUUsage(context.Background()))
}

func TestCPUPercentNoElapsedTime(t *testing.T) {
	_, err := cpuPercent(cpuTimes{idle: 10, total: 100}, cpuTimes{idle: 10, total: 100})
	assert.Error(t, err)
}

func TestParseCPUTimes(t *testing.T) {
	got, err := parseCPUTimes("cpu  1 2 3 4 5 6")
	require.NoError(t, err)
	assert.Equal(t, cpuTimes{idle: 4, total: 10}, got)

	for _, line := range []string{"", "intr 1 2 3 4", "cpu 1 2 x 4", "cpu 1 2"} {
		_, err := parseCPUTimes(line)
		assert.Error(t, err, line)
	}
}

func TestMemoryUsageFallbacks(t *testing.T) {
	free := "               total        used        free      shared  buff/cache   available\n" +
		"Mem:         8000000     2000000     4000000       10000     2000000     5800000\n" +
		"Swap:        2000000           0     2000000\n"
	meminfo := "MemTotal:        1000 kB\nMemFree:          100 kB\nMemAvailable:     250 kB\n"

	tests := []struct {
		name   string
		runner fakeRunner
		fsys   fstest.MapFS
		want   float64
	}{
		{"free", fakeRunner{"free": free}, fstest.MapFS{}, 25.0},
		{"meminfo", fakeRunner{}, fstest.MapFS{"proc/meminfo": {Data: []byte(meminfo)}}, 75.0},
		{"garbage free falls through", fakeRunner{"free": "nonsense"}, fstest.MapFS{"proc/meminfo": {Data: []byte(meminfo)}}, 75.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(fallbackOptions(tt.fsys, tt.runner))
			assert.Equal(t, tt.want, s.MemoryUsage(context.Background()))
		})
	}
}

func TestDiskUsageFromDf(t *testing.T) {
	df := "Filesystem     1K-blocks     Used Available Use% Mounted on\n" +
		"/dev/sda1         100000    70000     30000  70% /\n"
	s := NewSampler(fallbackOptions(fstest.MapFS{}, fakeRunner{"df /": df}))
	assert.Equal(t, 70.0, s.DiskUsage(context.Background()))
}

func TestDiskUsageWrappedDfRow(t *testing.T) {
	df := "Filesystem     1K-blocks     Used Available Use% Mounted on\n" +
		"/dev/mapper/very-long-volume-name\n" +
		"                  100000    42000     58000  42% /\n"
	s := NewSampler(fallbackOptions(fstest.MapFS{}, fakeRunner{"df /": df}))
	assert.Equal(t, 42.0, s.DiskUsage(context.Background()))
}

func TestUptimeFallbacks(t *testing.T) {
	procFS := fstest.MapFS{"proc/uptime": {Data: []byte("12345.67 54321.00\n")}}

	s := NewSampler(fallbackOptions(procFS, fakeRunner{}))
	assert.Equal(t, "12345.67 seconds", s.Uptime(context.Background()))

	s = NewSampler(fallbackOptions(fstest.MapFS{}, fakeRunner{"uptime -p": "up 2 days, 3 hours\n"}))
	assert.Equal(t, "2 days, 3 hours", s.Uptime(context.Background()))
}

func TestLoadAverageFromProc(t *testing.T) {
	fsys := fstest.MapFS{"proc/loadavg": {Data: []byte("0.50 0.40 0.30 1/234 5678\n")}}
	s := NewSampler(fallbackOptions(fsys, fakeRunner{}))
	assert.Equal(t, 0.5, s.LoadAverage(context.Background()))
}

func TestProcessCountFallbacks(t *testing.T) {
	s := NewSampler(fallbackOptions(fstest.MapFS{}, fakeRunner{"ps -e -o pid=": "    1\n   22\n  333\n"}))
	assert.Equal(t, 3, s.ProcessCount(context.Background()))

	procFS := fstest.MapFS{
		"proc/1/status":  {Data: []byte("Name: init")},
		"proc/22/status": {Data: []byte("Name: sshd")},
		"proc/self/stat": {Data: []byte("")},
		"proc/uptime":    {Data: []byte("1 1")},
	}
	s = NewSampler(fallbackOptions(procFS, fakeRunner{}))
	assert.Equal(t, 2, s.ProcessCount(context.Background()))
}

func TestConnectionCountFallbacks(t *testing.T) {
	ss := "State  Recv-Q Send-Q Local Address:Port  Peer Address:Port Process\n" +
		"ESTAB  0      0      10.0.0.2:22         10.0.0.9:51000\n" +
		"ESTAB  0      36     10.0.0.2:22         10.0.0.9:51001\n"
	netstat := "Active Internet connections (w/o servers)\n" +
		"Proto Recv-Q Send-Q Local Address           Foreign Address         State\n" +
		"tcp        0      0 10.0.0.2:22             10.0.0.9:51000          ESTABLISHED\n" +
		"tcp6       0      0 ::1:5432                ::1:40000               ESTABLISHED\n" +
		"tcp        0      0 10.0.0.2:22             10.0.0.9:51002          TIME_WAIT\n"

	tests := []struct {
		name   string
		runner fakeRunner
		want   int
	}{
		{"ss", fakeRunner{"ss -tn": ss}, 2},
		{"ss without header", fakeRunner{"ss -tn": "ESTAB 0 0 a:1 b:2\n"}, 1},
		{"ss empty", fakeRunner{"ss -tn": "State Recv-Q Send-Q\n"}, 0},
		{"netstat when ss missing", fakeRunner{"netstat -tn": netstat}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(fallbackOptions(fstest.MapFS{}, tt.runner))
			assert.Equal(t, tt.want, s.ConnectionCount(context.Background()))
		})
	}
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 2, countLines("a\n\n b \n"))
}

func TestResolveCapabilities(t *testing.T) {
	ctx := context.Background()

	caps, err := ResolveCapabilities(ctx, SourceLibrary)
	require.NoError(t, err)
	assert.True(t, caps.Library)

	caps, err = ResolveCapabilities(ctx, SourceFallback)
	require.NoError(t, err)
	assert.False(t, caps.Library)

	_, err = ResolveCapabilities(ctx, "psutil")
	assert.Error(t, err)
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
