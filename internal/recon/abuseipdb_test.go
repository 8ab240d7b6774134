package recon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vulnverified/netsentry/internal/intel"
)

const abuseIPDBBody = `{
	"data": {
		"ipAddress": "1.2.3.4",
		"abuseConfidenceScore": 85,
		"totalReports": 42,
		"lastReportedAt": "2024-05-01T10:00:00+00:00",
		"isp": "Example Hosting",
		"domain": "example.net",
		"countryCode": "US"
	}
}`

func TestParseAbuseIPDBResponse(t *testing.T) {
	rec, err := parseAbuseIPDBResponse([]byte(abuseIPDBBody))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := intel.AbuseRecord{
		AbuseConfidenceScore: 85,
		TotalReports:         42,
		LastReported:         "2024-05-01T10:00:00+00:00",
		ISP:                  "Example Hosting",
		Domain:               "example.net",
		Country:              "US",
	}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
}

func TestParseAbuseIPDBNullFields(t *testing.T) {
	rec, err := parseAbuseIPDBResponse([]byte(`{"data": {"abuseConfidenceScore": 0, "lastReportedAt": null}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.LastReported != "N/A" || rec.ISP != "Unknown" || rec.Country != "Unknown" {
		t.Errorf("record = %+v", rec)
	}

	if _, err := parseAbuseIPDBResponse([]byte(`{"errors": []}`)); err == nil {
		t.Error("expected error for missing data")
	}
}

func TestAbuseIPDBLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/check" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ipAddress") != "1.2.3.4" || q.Get("maxAgeInDays") != "90" {
			t.Errorf("query = %v", q)
		}
		if r.Header.Get("Key") != "secret" {
			t.Errorf("Key = %q", r.Header.Get("Key"))
		}
		w.Write([]byte(abuseIPDBBody))
	}))
	defer srv.Close()

	a := &AbuseIPDB{APIKey: "secret", BaseURL: srv.URL, Fetcher: &Fetcher{}}
	rec := a.LookupAbuse(context.Background(), "1.2.3.4")
	if rec.IsMock || rec.AbuseConfidenceScore != 85 {
		t.Errorf("record = %+v", rec)
	}
}

func TestAbuseIPDBMalformedDegradesToMock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": `))
	}))
	defer srv.Close()

	progress := &recordingProgress{}
	a := &AbuseIPDB{APIKey: "secret", BaseURL: srv.URL, Fetcher: &Fetcher{}, Progress: progress}
	rec := a.LookupAbuse(context.Background(), "1.2.3.4")
	if rec != intel.MockAbuseRecord() {
		t.Errorf("record = %+v, want mock", rec)
	}
	warns := progress.warnings()
	if len(warns) != 1 || !strings.Contains(warns[0], "abuseipdb") {
		t.Errorf("warnings = %v", warns)
	}
}

func TestAbuseIPDBEmptyKeyUsesMock(t *testing.T) {
	a := &AbuseIPDB{Fetcher: &Fetcher{}}
	if a.Configured() {
		t.Error("empty key reported as configured")
	}
	if rec := a.LookupAbuse(context.Background(), "1.2.3.4"); !rec.IsMock {
		t.Errorf("record = %+v, want mock", rec)
	}
}
