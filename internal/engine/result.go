// Package engine orchestrates host liveness checks and port probing
// across a network range.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Protocol is the transport a port was found open on.
type Protocol string

const (
	TCP Protocol = "TCP"
	UDP Protocol = "UDP"
)

// StateOpen is the only state a PortScanResult carries. Closed and filtered
// ports are never materialized.
const StateOpen = "open"

// PortScanResult represents a confirmed open port on a host.
type PortScanResult struct {
	IP         string    `json:"ip"`
	Port       int       `json:"port"`
	Protocol   Protocol  `json:"protocol"`
	State      string    `json:"state"`
	Service    string    `json:"service"`
	Banner     string    `json:"banner,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

func (r PortScanResult) String() string {
	return fmt.Sprintf("%s:%d [%s] - %s - %s", r.IP, r.Port, r.Protocol, r.Service, r.State)
}

// Detailed renders the result as a multi-line block.
func (r PortScanResult) Detailed() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "IP: %s\n", r.IP)
	fmt.Fprintf(&sb, "Port: %d\n", r.Port)
	fmt.Fprintf(&sb, "Protocol: %s\n", r.Protocol)
	fmt.Fprintf(&sb, "Service: %s\n", r.Service)
	fmt.Fprintf(&sb, "State: %s\n", r.State)
	if r.Banner != "" {
		fmt.Fprintf(&sb, "Banner: %s\n", r.Banner)
	}
	fmt.Fprintf(&sb, "Timestamp: %s", r.CapturedAt.Format(time.RFC3339))
	return sb.String()
}

// RangeResult is the output of a range scan.
type RangeResult struct {
	Prefix       string                      `json:"prefix"`
	Start        int                         `json:"start"`
	End          int                         `json:"end"`
	Hosts        map[string][]PortScanResult `json:"hosts"`
	HostsScanned int                         `json:"hosts_scanned"`
	Cancelled    bool                        `json:"cancelled"`
	StartedAt    time.Time                   `json:"started_at"`
	CompletedAt  time.Time                   `json:"completed_at"`
	DurationSecs float64                     `json:"duration_secs"`
}

// OpenPortCount returns the number of open ports across all hosts.
func (r *RangeResult) OpenPortCount() int {
	n := 0
	for _, ports := range r.Hosts {
		n += len(ports)
	}
	return n
}

// LivenessChecker decides whether a host responds before its ports are probed.
// Any failure resolves to false.
type LivenessChecker interface {
	IsAlive(ctx context.Context, ip string, timeout time.Duration) bool
}

// PortProber makes a single probe attempt against ip:port.
// Returns nil when the port is not confirmed open.
type PortProber interface {
	Probe(ctx context.Context, ip string, port int, timeout time.Duration) *PortScanResult
}

// ProgressReporter is called by the engine to report progress.
type ProgressReporter interface {
	Stage(num, total int, msg string)
	Detail(msg string)
	Warn(msg string)
}

type noopProgress struct{}

func (noopProgress) Stage(int, int, string) {}
func (noopProgress) Detail(string)          {}
func (noopProgress) Warn(string)            {}

// NopProgress returns a ProgressReporter that discards everything.
func NopProgress() ProgressReporter { return noopProgress{} }
