package system

import (
	"fmt"
	stdnet "net"
	"slices"

	"github.com/shirou/gopsutil/v4/net"
)

// LocalIP returns the first global unicast IPv4 address of an interface that
// is up and not a loopback. The health report carries it as a best-effort
// hint; callers treat an error as "unknown address".
func LocalIP() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("enumerate interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, addr := range iface.Addrs {
			ip, _, err := stdnet.ParseCIDR(addr.Addr)
			if err != nil {
				ip = stdnet.ParseIP(addr.Addr)
			}
			if ip == nil || ip.To4() == nil {
				continue
			}
			if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
				continue
			}
			return ip.String(), nil
		}
	}

	return "", fmt.Errorf("no global unicast IPv4 address found")
}
