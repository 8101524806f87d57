package rtc

import (
	"net"
	"strings"
)

var (
	cgnatBlock = mustCIDR("100.64.0.0/10")

	// Interface name fragments of VPN and tunnel adapters: OpenVPN, TAP,
	// WireGuard, PPP and Cloudflare WARP.
	tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp"}
)

type netInterface struct {
	name string
	up   bool
	loop bool
	ips  []net.IP
}

// restrictedNetwork reports whether this host is likely behind a VPN or
// carrier-grade NAT, where direct paths rarely work and TURN should be forced.
func restrictedNetwork() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	list := make([]netInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := netInterface{
			name: iface.Name,
			up:   iface.Flags&net.FlagUp != 0,
			loop: iface.Flags&net.FlagLoopback != 0,
		}
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				switch v := addr.(type) {
				case *net.IPNet:
					ni.ips = append(ni.ips, v.IP)
				case *net.IPAddr:
					ni.ips = append(ni.ips, v.IP)
				}
			}
		}
		list = append(list, ni)
	}
	return anyRestricted(list)
}

func anyRestricted(ifaces []netInterface) bool {
	for _, iface := range ifaces {
		if !iface.up || iface.loop {
			continue
		}
		name := strings.ToLower(iface.name)
		for _, frag := range tunnelNames {
			if strings.Contains(name, frag) {
				return true
			}
		}
		for _, ip := range iface.ips {
			if cgnatBlock.Contains(ip) {
				return true
			}
		}
	}
	return false
}

func mustCIDR(s string) *net.IPNet {
	_, block, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return block
}
