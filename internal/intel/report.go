// Package intel aggregates IP reputation from external threat-intelligence
// providers into a scored, cached verdict.
package intel

import (
	"context"
	"time"
)

// Verdict is the risk category derived from a combined threat score.
type Verdict string

const (
	Clean    Verdict = "CLEAN"
	Low      Verdict = "LOW"
	Medium   Verdict = "MEDIUM"
	High     Verdict = "HIGH"
	Critical Verdict = "CRITICAL"
	Error    Verdict = "ERROR"
)

// MalwareRecord is the engine-vote consensus from a malware-reputation provider.
type MalwareRecord struct {
	Malicious        int    `json:"malicious"`
	Suspicious       int    `json:"suspicious"`
	Harmless         int    `json:"harmless"`
	Undetected       int    `json:"undetected"`
	Country          string `json:"country"`
	Reputation       int    `json:"reputation"`
	LastAnalysisDate string `json:"last_analysis_date"`
	IsMock           bool   `json:"is_mock,omitempty"`
}

// TotalEngines is the number of engines that voted.
func (r MalwareRecord) TotalEngines() int {
	return r.Malicious + r.Suspicious + r.Harmless + r.Undetected
}

// AbuseRecord is the community abuse-report summary from an abuse-report provider.
type AbuseRecord struct {
	AbuseConfidenceScore int    `json:"abuse_confidence_score"`
	TotalReports         int    `json:"total_reports"`
	LastReported         string `json:"last_reported"`
	ISP                  string `json:"isp"`
	Domain               string `json:"domain"`
	Country              string `json:"country"`
	IsMock               bool   `json:"is_mock,omitempty"`
}

// MockMalwareRecord is the zero-risk placeholder used when the provider is
// unreachable or unconfigured.
func MockMalwareRecord() MalwareRecord {
	return MalwareRecord{
		Country:          "Unknown",
		LastAnalysisDate: "N/A",
		IsMock:           true,
	}
}

// MockAbuseRecord is the zero-risk placeholder used when the provider is
// unreachable or unconfigured.
func MockAbuseRecord() AbuseRecord {
	return AbuseRecord{
		LastReported: "N/A",
		ISP:          "Unknown",
		Domain:       "unknown.com",
		Country:      "Unknown",
		IsMock:       true,
	}
}

// ThreatReport is the aggregated reputation of one IP.
type ThreatReport struct {
	IP                  string        `json:"ip_address"`
	Timestamp           time.Time     `json:"timestamp"`
	VirusTotal          MalwareRecord `json:"virustotal"`
	AbuseIPDB           AbuseRecord   `json:"abuseipdb"`
	CombinedThreatScore float64       `json:"combined_threat_score"`
	Verdict             Verdict       `json:"overall_verdict"`
	Cached              bool          `json:"cached"`
	CacheTime           time.Time     `json:"cache_time,omitzero"`
	Error               string        `json:"error,omitempty"`
}

// MalwareProvider looks up malware-reputation votes for an IP.
// Implementations never fail outward; they return MockMalwareRecord instead.
type MalwareProvider interface {
	Name() string
	LookupMalware(ctx context.Context, ip string) MalwareRecord
}

// AbuseProvider looks up abuse-report data for an IP.
// Implementations never fail outward; they return MockAbuseRecord instead.
type AbuseProvider interface {
	Name() string
	LookupAbuse(ctx context.Context, ip string) AbuseRecord
}
