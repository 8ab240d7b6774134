package engine

import (
	"net/netip"
	"sort"

	"github.com/vulnverified/netsentry/pkg/ports"
)

// ScanStatistics is an aggregate over a set of scan results.
type ScanStatistics struct {
	TotalScanned        int            `json:"total_ports_scanned"`
	OpenPorts           int            `json:"open_ports"`
	CommonServices      []string       `json:"common_services"`
	ServiceDistribution map[string]int `json:"service_distribution"`
}

// Stats computes statistics for results. Services named Unknown are counted
// in the distribution but not listed as common services.
func Stats(results []PortScanResult) ScanStatistics {
	stats := ScanStatistics{
		TotalScanned:        len(results),
		CommonServices:      []string{},
		ServiceDistribution: make(map[string]int),
	}
	for _, r := range results {
		if r.State != StateOpen {
			continue
		}
		stats.OpenPorts++
		stats.ServiceDistribution[r.Service]++
		if r.Service != ports.Unknown {
			stats.CommonServices = append(stats.CommonServices, r.Service)
		}
	}
	return stats
}

// Flatten returns every result in hosts ordered by (ip, port).
func Flatten(hosts map[string][]PortScanResult) []PortScanResult {
	var out []PortScanResult
	for _, rs := range hosts {
		out = append(out, rs...)
	}
	SortResults(out)
	return out
}

// SortResults orders results by numeric IP, then port, then protocol.
func SortResults(results []PortScanResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.IP != b.IP {
			return compareIP(a.IP, b.IP) < 0
		}
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		return a.Protocol < b.Protocol
	})
}

func compareIP(a, b string) int {
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	if errA != nil || errB != nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	return pa.Compare(pb)
}
