package recon

import (
	"fmt"
	"net"
)

// DefaultNetworkPrefix is used when no private IPv4 interface is found.
const DefaultNetworkPrefix = "192.168.1."

// LocalNetworkPrefix returns the first three octets of the first
// non-loopback IPv4 interface address, with a trailing dot.
func LocalNetworkPrefix() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return DefaultNetworkPrefix
	}
	return prefixFromAddrs(addrs)
}

func prefixFromAddrs(addrs []net.Addr) string {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return fmt.Sprintf("%d.%d.%d.", ip4[0], ip4[1], ip4[2])
		}
	}
	return DefaultNetworkPrefix
}
