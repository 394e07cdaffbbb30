package providers

import (
	"net"

	"github.com/i474232898/epd-weather/internal/weather"
)

// InterfaceLink reports link state from the host's network interfaces. It
// never performs network I/O.
type InterfaceLink struct {
	// Name restricts the check to one interface, e.g. "wlan0". Empty means
	// any non-loopback interface.
	Name string

	interfaces func() ([]net.Interface, error)
	addrs      func(net.Interface) ([]net.Addr, error)
}

var _ weather.Link = (*InterfaceLink)(nil)

func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{
		Name:       name,
		interfaces: net.Interfaces,
		addrs:      func(i net.Interface) ([]net.Addr, error) { return i.Addrs() },
	}
}

// Status maps interface state onto the Wi-Fi link states: no candidate
// interface is "no SSID", an interface that is down is "disconnected", an
// interface that is up without an address is "connect failed".
func (l *InterfaceLink) Status() weather.LinkStatus {
	ifaces, err := l.interfaces()
	if err != nil {
		return weather.LinkIdle
	}

	best := weather.LinkNoSSIDAvailable
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if l.Name != "" && iface.Name != l.Name {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			if best == weather.LinkNoSSIDAvailable {
				best = weather.LinkDisconnected
			}
			continue
		}
		addrs, err := l.addrs(iface)
		if err != nil || len(addrs) == 0 {
			best = weather.LinkConnectFailed
			continue
		}
		return weather.LinkConnected
	}
	return best
}
