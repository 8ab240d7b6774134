package recon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/internal/intel"
)

const virusTotalBaseURL = "https://www.virustotal.com/api/v3"

type virusTotalResponse struct {
	Data *struct {
		Attributes *struct {
			LastAnalysisStats *struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
			Country          string          `json:"country"`
			Reputation       int             `json:"reputation"`
			LastAnalysisDate json.RawMessage `json:"last_analysis_date"`
		} `json:"attributes"`
	} `json:"data"`
}

// VirusTotal implements intel.MalwareProvider against the VirusTotal v3 API.
type VirusTotal struct {
	APIKey   string
	BaseURL  string
	Fetcher  *Fetcher
	Progress engine.ProgressReporter
}

// Name implements intel.MalwareProvider.
func (v *VirusTotal) Name() string { return "virustotal" }

// Configured reports whether a real API key is set.
func (v *VirusTotal) Configured() bool { return keyConfigured(v.APIKey) }

// LookupMalware implements intel.MalwareProvider. Any failure, or a missing
// key, yields intel.MockMalwareRecord.
func (v *VirusTotal) LookupMalware(ctx context.Context, ip string) intel.MalwareRecord {
	if !v.Configured() {
		return intel.MockMalwareRecord()
	}

	base := v.BaseURL
	if base == "" {
		base = virusTotalBaseURL
	}
	url := fmt.Sprintf("%s/ip_addresses/%s", strings.TrimSuffix(base, "/"), ip)

	body, err := v.Fetcher.Fetch(ctx, url, map[string]string{
		"x-apikey": v.APIKey,
		"Accept":   "application/json",
	})
	if err != nil {
		v.warn(fmt.Sprintf("virustotal lookup for %s: %s", ip, err))
		return intel.MockMalwareRecord()
	}

	rec, err := parseVirusTotalResponse(body)
	if err != nil {
		v.warn(fmt.Sprintf("virustotal lookup for %s: %s", ip, err))
		return intel.MockMalwareRecord()
	}
	return rec
}

func (v *VirusTotal) warn(msg string) {
	if v.Progress != nil {
		v.Progress.Warn(msg)
	}
}

func parseVirusTotalResponse(body []byte) (intel.MalwareRecord, error) {
	var resp virusTotalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return intel.MalwareRecord{}, fmt.Errorf("virustotal JSON parse: %w", err)
	}
	if resp.Data == nil || resp.Data.Attributes == nil || resp.Data.Attributes.LastAnalysisStats == nil {
		return intel.MalwareRecord{}, errors.New("virustotal response missing last_analysis_stats")
	}

	attrs := resp.Data.Attributes
	stats := attrs.LastAnalysisStats
	country := attrs.Country
	if country == "" {
		country = "Unknown"
	}
	return intel.MalwareRecord{
		Malicious:        stats.Malicious,
		Suspicious:       stats.Suspicious,
		Harmless:         stats.Harmless,
		Undetected:       stats.Undetected,
		Country:          country,
		Reputation:       attrs.Reputation,
		LastAnalysisDate: formatAnalysisDate(attrs.LastAnalysisDate),
	}, nil
}

// formatAnalysisDate renders the epoch-seconds date VirusTotal returns.
func formatAnalysisDate(raw json.RawMessage) string {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return "N/A"
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC().Format(time.RFC3339)
	}
	return s
}
