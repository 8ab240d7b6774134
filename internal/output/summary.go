package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vulnverified/netsentry/internal/engine"
)

// Version is set via ldflags at build time.
var Version = "dev"

// UserAgent is sent on every provider request.
func UserAgent() string {
	return "netsentry/" + Version
}

// WriteHeader prints the netsentry banner.
func WriteHeader(w io.Writer, noColor bool) {
	if noColor {
		fmt.Fprintf(w, "netsentry %s\n\n", Version)
	} else {
		fmt.Fprintf(w, "\033[1mnetsentry %s\033[0m\n\n", Version)
	}
}

// WriteSummary prints the post-scan statistics.
func WriteSummary(w io.Writer, target string, hosts int, stats engine.ScanStatistics, cancelled, noColor bool) {
	label := func(s string) string {
		if noColor {
			return s
		}
		return "\033[1m" + s + "\033[0m"
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", label("Target:"), target)
	fmt.Fprintf(w, "%s %d across %d hosts\n", label("Open ports:"), stats.OpenPorts, hosts)
	if len(stats.CommonServices) > 0 {
		fmt.Fprintf(w, "%s %s\n", label("Services:"), formatDistribution(stats))
	}

	if cancelled {
		fmt.Fprintln(w)
		if noColor {
			fmt.Fprintln(w, "! Scan cancelled, results are partial")
		} else {
			fmt.Fprintln(w, "\033[33m!\033[0m Scan cancelled, results are partial")
		}
	}
}

// formatDistribution lists services in first-seen order with their counts.
func formatDistribution(stats engine.ScanStatistics) string {
	seen := make(map[string]bool, len(stats.CommonServices))
	var parts []string
	for _, svc := range stats.CommonServices {
		if seen[svc] {
			continue
		}
		seen[svc] = true
		parts = append(parts, fmt.Sprintf("%s (%d)", svc, stats.ServiceDistribution[svc]))
	}
	return strings.Join(parts, ", ")
}
