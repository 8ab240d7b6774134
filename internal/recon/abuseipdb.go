package recon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/internal/intel"
)

const (
	abuseIPDBBaseURL   = "https://api.abuseipdb.com/api/v2"
	abuseIPDBMaxAgeDay = 90
)

type abuseIPDBResponse struct {
	Data *struct {
		AbuseConfidenceScore int     `json:"abuseConfidenceScore"`
		TotalReports         int     `json:"totalReports"`
		LastReportedAt       *string `json:"lastReportedAt"`
		ISP                  string  `json:"isp"`
		Domain               string  `json:"domain"`
		CountryCode          string  `json:"countryCode"`
	} `json:"data"`
}

// AbuseIPDB implements intel.AbuseProvider against the AbuseIPDB v2 API.
type AbuseIPDB struct {
	APIKey   string
	BaseURL  string
	Fetcher  *Fetcher
	Progress engine.ProgressReporter
}

// Name implements intel.AbuseProvider.
func (a *AbuseIPDB) Name() string { return "abuseipdb" }

// Configured reports whether a real API key is set.
func (a *AbuseIPDB) Configured() bool { return keyConfigured(a.APIKey) }

// LookupAbuse implements intel.AbuseProvider. Any failure, or a missing key,
// yields intel.MockAbuseRecord.
func (a *AbuseIPDB) LookupAbuse(ctx context.Context, ip string) intel.AbuseRecord {
	if !a.Configured() {
		return intel.MockAbuseRecord()
	}

	base := a.BaseURL
	if base == "" {
		base = abuseIPDBBaseURL
	}
	q := url.Values{}
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", fmt.Sprint(abuseIPDBMaxAgeDay))
	u := fmt.Sprintf("%s/check?%s", strings.TrimSuffix(base, "/"), q.Encode())

	body, err := a.Fetcher.Fetch(ctx, u, map[string]string{
		"Key":    a.APIKey,
		"Accept": "application/json",
	})
	if err != nil {
		a.warn(fmt.Sprintf("abuseipdb lookup for %s: %s", ip, err))
		return intel.MockAbuseRecord()
	}

	rec, err := parseAbuseIPDBResponse(body)
	if err != nil {
		a.warn(fmt.Sprintf("abuseipdb lookup for %s: %s", ip, err))
		return intel.MockAbuseRecord()
	}
	return rec
}

func (a *AbuseIPDB) warn(msg string) {
	if a.Progress != nil {
		a.Progress.Warn(msg)
	}
}

func parseAbuseIPDBResponse(body []byte) (intel.AbuseRecord, error) {
	var resp abuseIPDBResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return intel.AbuseRecord{}, fmt.Errorf("abuseipdb JSON parse: %w", err)
	}
	if resp.Data == nil {
		return intel.AbuseRecord{}, errors.New("abuseipdb response missing data")
	}

	d := resp.Data
	lastReported := "N/A"
	if d.LastReportedAt != nil && *d.LastReportedAt != "" {
		lastReported = *d.LastReportedAt
	}
	return intel.AbuseRecord{
		AbuseConfidenceScore: d.AbuseConfidenceScore,
		TotalReports:         d.TotalReports,
		LastReported:         lastReported,
		ISP:                  orUnknown(d.ISP),
		Domain:               d.Domain,
		Country:              orUnknown(d.CountryCode),
	}, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
