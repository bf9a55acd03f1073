package collector

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinty-monitor/agent/internal/models"
)

func TestNetworkRates(t *testing.T) {
	got := networkRates(
		models.NetworkCounterSnapshot{BytesSent: 1000, BytesRecv: 2000},
		models.NetworkCounterSnapshot{BytesSent: 1500, BytesRecv: 2050},
	)
	assert.Equal(t, models.NetworkUsage{UpSpeed: 500, DownSpeed: 50, TotalUp: 1500, TotalDown: 2050}, got)
}

func TestNetworkRatesCounterResetPassesThrough(t *testing.T) {
	got := networkRates(
		models.NetworkCounterSnapshot{BytesSent: 5000, BytesRecv: 9000},
		models.NetworkCounterSnapshot{BytesSent: 200, BytesRecv: 100},
	)
	assert.Equal(t, int64(-4800), got.UpSpeed)
	assert.Equal(t, int64(-8900), got.DownSpeed)
	assert.Equal(t, uint64(200), got.TotalUp)
}

func TestMeasureNetworkTakesTwoSnapshots(t *testing.T) {
	snapshots := []models.NetworkCounterSnapshot{
		{BytesSent: 1000, BytesRecv: 2000},
		{BytesSent: 1500, BytesRecv: 2050},
	}
	calls := 0
	read := func(context.Context) (models.NetworkCounterSnapshot, error) {
		s := snapshots[calls]
		calls++
		return s, nil
	}

	got, err := measureNetwork(context.Background(), 0, read)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(500), got.UpSpeed)
	assert.Equal(t, int64(50), got.DownSpeed)
}

func TestMeasureNetworkReadError(t *testing.T) {
	read := func(context.Context) (models.NetworkCounterSnapshot, error) {
		return models.NetworkCounterSnapshot{}, errors.New("no counters")
	}
	_, err := measureNetwork(context.Background(), 0, read)
	assert.Error(t, err)
}

func TestNetworkFromSysfsUsesDefaultRouteInterface(t *testing.T) {
	fsys := newSequenceFS(fstest.MapFS{
		"sys/class/net/eth0/mtu": {Data: []byte("1500")},
	}, map[string][]string{
		"sys/class/net/ens3/statistics/tx_bytes": {"1000\n", "1500\n"},
		"sys/class/net/ens3/statistics/rx_bytes": {"2000\n", "2050\n"},
		"sys/class/net/eth0/statistics/tx_bytes": {"1\n", "999999\n"},
		"sys/class/net/eth0/statistics/rx_bytes": {"1\n", "999999\n"},
	})
	runner := fakeRunner{
		"ip route show default": "default via 10.0.0.1 dev ens3 proto dhcp src 10.0.0.2 metric 100\n",
	}
	s := NewSampler(fallbackOptions(fsys, runner))

	got := s.Network(context.Background())
	assert.Equal(t, models.NetworkUsage{UpSpeed: 500, DownSpeed: 50, TotalUp: 1500, TotalDown: 2050}, got)
}

func TestNetworkFallsBackToNamedInterface(t *testing.T) {
	fsys := newSequenceFS(fstest.MapFS{
		"sys/class/net/ens3/mtu": {Data: []byte("1500")},
	}, map[string][]string{
		"sys/class/net/ens3/statistics/tx_bytes": {"10\n", "30\n"},
		"sys/class/net/ens3/statistics/rx_bytes": {"40\n", "100\n"},
	})
	s := NewSampler(fallbackOptions(fsys, fakeRunner{}))

	got := s.Network(context.Background())
	assert.Equal(t, models.NetworkUsage{UpSpeed: 20, DownSpeed: 60, TotalUp: 30, TotalDown: 100}, got)
}

func TestParseDefaultRouteDev(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    string
		wantErr bool
	}{
		{"dhcp route", "default via 192.168.1.1 dev wlp2s0 proto dhcp metric 600\n", "wlp2s0", false},
		{"second line", "10.0.0.0/8 dev tun0 scope link\ndefault dev ppp0 scope link\n", "ppp0", false},
		{"no default", "10.0.0.0/8 dev tun0 scope link\n", "", true},
		{"dangling dev", "default via 10.0.0.1 dev\n", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDefaultRouteDev(tt.out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcRoutePolicy(t *testing.T) {
	route := "Iface\tDestination\tGateway \tFlags\tRefCnt\tUse\tMetric\tMask\t\tMTU\tWindow\tIRTT\n" +
		"docker0\t000011AC\t00000000\t0001\t0\t0\t0\t0000FFFF\t0\t0\t0\n" +
		"enp1s0\t00000000\t0101A8C0\t0003\t0\t0\t100\t00000000\t0\t0\t0\n"
	p := ProcRoutePolicy{FS: fstest.MapFS{"proc/net/route": {Data: []byte(route)}}}

	got, err := p.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "enp1s0", got)

	_, err = ProcRoutePolicy{FS: fstest.MapFS{}}.Select(context.Background())
	assert.Error(t, err)
}

func TestNamedPolicy(t *testing.T) {
	fsys := fstest.MapFS{
		"sys/class/net/lo/mtu":   {Data: []byte("65536")},
		"sys/class/net/ens5/mtu": {Data: []byte("9001")},
		"sys/class/net/eno1/mtu": {Data: []byte("1500")},
	}

	got, err := NamedPolicy{FS: fsys, Candidates: []string{"eth0", "ens3", "ens5", "eno1"}}.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ens5", got)

	_, err = NamedPolicy{FS: fsys, Candidates: []string{"eth0"}}.Select(context.Background())
	assert.ErrorIs(t, err, errNoInterface)
}

type stubPolicy struct {
	name  string
	iface string
	err   error
}

func (p stubPolicy) Name() string { return p.name }

func (p stubPolicy) Select(context.Context) (string, error) { return p.iface, p.err }

func TestInterfaceResolverOrder(t *testing.T) {
	r := NewInterfaceResolver(nil,
		stubPolicy{name: "broken", err: errors.New("ip: not found")},
		stubPolicy{name: "empty"},
		stubPolicy{name: "second", iface: "ens3"},
		stubPolicy{name: "third", iface: "eth0"},
	)
	got, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ens3", got)

	_, err = NewInterfaceResolver(nil).Resolve(context.Background())
	assert.ErrorIs(t, err, errNoInterface)
}
