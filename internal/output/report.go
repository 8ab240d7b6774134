package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulnverified/netsentry/internal/intel"
)

var verdictColors = map[intel.Verdict]lipgloss.Color{
	intel.Clean:    "42",
	intel.Low:      "114",
	intel.Medium:   "214",
	intel.High:     "208",
	intel.Critical: "196",
	intel.Error:    "244",
}

// WriteThreatReport renders a threat report as a bordered panel, or as plain
// lines when noColor is set.
func WriteThreatReport(w io.Writer, r intel.ThreatReport, noColor bool) {
	verdict := string(r.Verdict)
	if !noColor {
		verdict = lipgloss.NewStyle().
			Bold(true).
			Foreground(verdictColors[r.Verdict]).
			Render(verdict)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "IP:        %s\n", r.IP)
	fmt.Fprintf(&sb, "Verdict:   %s (score %.1f)\n", verdict, r.CombinedThreatScore)
	if r.Error != "" {
		fmt.Fprintf(&sb, "Error:     %s\n", r.Error)
	}

	vt := r.VirusTotal
	fmt.Fprintf(&sb, "VirusTotal: %d malicious, %d suspicious, %d harmless, %d undetected%s\n",
		vt.Malicious, vt.Suspicious, vt.Harmless, vt.Undetected, mockTag(vt.IsMock))
	fmt.Fprintf(&sb, "  country %s, reputation %d, last analysis %s\n",
		vt.Country, vt.Reputation, vt.LastAnalysisDate)

	ab := r.AbuseIPDB
	fmt.Fprintf(&sb, "AbuseIPDB:  confidence %d%%, %d reports%s\n",
		ab.AbuseConfidenceScore, ab.TotalReports, mockTag(ab.IsMock))
	fmt.Fprintf(&sb, "  last reported %s, ISP %s, domain %s, country %s\n",
		ab.LastReported, ab.ISP, ab.Domain, ab.Country)

	if r.Cached {
		fmt.Fprintf(&sb, "Cached:    yes (%s)\n", r.CacheTime.Format(time.RFC3339))
	}

	body := strings.TrimRight(sb.String(), "\n")
	fmt.Fprintln(w)
	if noColor {
		fmt.Fprintln(w, body)
		return
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(verdictColors[r.Verdict]).
		Padding(0, 1)
	fmt.Fprintln(w, panel.Render(body))
}

func mockTag(mock bool) string {
	if mock {
		return " [mock]"
	}
	return ""
}
