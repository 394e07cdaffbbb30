package providers

import (
	"errors"
	"net"
	"testing"

	"github.com/i474232898/epd-weather/internal/weather"
)

func fakeLink(name string, ifaces []net.Interface, withAddr map[string]bool) *InterfaceLink {
	return &InterfaceLink{
		Name:       name,
		interfaces: func() ([]net.Interface, error) { return ifaces, nil },
		addrs: func(i net.Interface) ([]net.Addr, error) {
			if withAddr[i.Name] {
				return []net.Addr{&net.IPNet{IP: net.IPv4(192, 168, 1, 20), Mask: net.CIDRMask(24, 32)}}, nil
			}
			return nil, nil
		},
	}
}

func TestInterfaceLink_Status(t *testing.T) {
	lo := net.Interface{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}
	wlanUp := net.Interface{Name: "wlan0", Flags: net.FlagUp}
	wlanDown := net.Interface{Name: "wlan0"}
	eth := net.Interface{Name: "eth0", Flags: net.FlagUp}

	tests := []struct {
		name   string
		filter string
		ifaces []net.Interface
		addrs  map[string]bool
		want   weather.LinkStatus
	}{
		{name: "loopback only", ifaces: []net.Interface{lo}, want: weather.LinkNoSSIDAvailable},
		{name: "down", ifaces: []net.Interface{lo, wlanDown}, want: weather.LinkDisconnected},
		{name: "up without address", ifaces: []net.Interface{lo, wlanUp}, want: weather.LinkConnectFailed},
		{name: "connected", ifaces: []net.Interface{lo, wlanUp}, addrs: map[string]bool{"wlan0": true}, want: weather.LinkConnected},
		{
			name:   "filtered to missing interface",
			filter: "wlan0",
			ifaces: []net.Interface{lo, eth},
			addrs:  map[string]bool{"eth0": true},
			want:   weather.LinkNoSSIDAvailable,
		},
		{
			name:   "filtered to named interface",
			filter: "eth0",
			ifaces: []net.Interface{wlanUp, eth},
			addrs:  map[string]bool{"eth0": true},
			want:   weather.LinkConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fakeLink(tt.filter, tt.ifaces, tt.addrs).Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterfaceLink_EnumerationError(t *testing.T) {
	l := &InterfaceLink{interfaces: func() ([]net.Interface, error) { return nil, errors.New("netlink") }}
	if got := l.Status(); got != weather.LinkIdle {
		t.Errorf("expected idle, got %v", got)
	}
}
