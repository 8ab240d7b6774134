package recon

import (
	"net"
	"testing"
)

func TestPrefixFromAddrs(t *testing.T) {
	mask := net.CIDRMask(24, 32)
	tests := []struct {
		name  string
		addrs []net.Addr
		want  string
	}{
		{"empty", nil, DefaultNetworkPrefix},
		{"loopback only", []net.Addr{&net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: mask}}, DefaultNetworkPrefix},
		{"ipv6 only", []net.Addr{&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}}, DefaultNetworkPrefix},
		{"skips loopback", []net.Addr{
			&net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: mask},
			&net.IPNet{IP: net.IPv4(10, 20, 30, 40), Mask: mask},
		}, "10.20.30."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prefixFromAddrs(tt.addrs); got != tt.want {
				t.Errorf("prefixFromAddrs = %q, want %q", got, tt.want)
			}
		})
	}
}
