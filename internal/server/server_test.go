package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/internal/intel"
	"github.com/vulnverified/netsentry/pkg/ports"
)

type mockThreats struct {
	calls []string
}

func (m *mockThreats) GetThreatIntelligence(_ context.Context, ip string) intel.ThreatReport {
	m.calls = append(m.calls, ip)
	return intel.ThreatReport{IP: ip, CombinedThreatScore: 42.5, Verdict: intel.Medium}
}

type mockScanner struct {
	gotIP    string
	gotPorts []int
	results  []engine.PortScanResult
	err      error
}

func (m *mockScanner) ScanHost(_ context.Context, ip string, p []int) ([]engine.PortScanResult, error) {
	m.gotIP = ip
	m.gotPorts = p
	return m.results, m.err
}

func do(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(&mockThreats{}, &mockScanner{})
	rec := do(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestThreatLookup(t *testing.T) {
	threats := &mockThreats{}
	s := New(threats, &mockScanner{})

	rec := do(t, s, "/api/threat/8.8.8.8")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var report intel.ThreatReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.IP != "8.8.8.8" || report.Verdict != intel.Medium {
		t.Errorf("report = %+v", report)
	}
	if len(threats.calls) != 1 {
		t.Errorf("aggregator called %d times", len(threats.calls))
	}
}

func TestThreatLookupRejectsInvalidIP(t *testing.T) {
	threats := &mockThreats{}
	s := New(threats, &mockScanner{})

	for _, path := range []string{"/api/threat/999.1.1.1", "/api/threat/example.com", "/api/threat/10.0.0"} {
		rec := do(t, s, path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
	if len(threats.calls) != 0 {
		t.Errorf("aggregator called for invalid input: %v", threats.calls)
	}
}

func TestHostPortsDefaultsToCommon(t *testing.T) {
	scanner := &mockScanner{results: []engine.PortScanResult{
		{IP: "10.0.0.5", Port: 443, Protocol: engine.TCP, State: engine.StateOpen, Service: "HTTPS"},
		{IP: "10.0.0.5", Port: 22, Protocol: engine.TCP, State: engine.StateOpen, Service: "SSH"},
	}}
	s := New(&mockThreats{}, scanner)

	rec := do(t, s, "/api/hosts/10.0.0.5/ports")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !reflect.DeepEqual(scanner.gotPorts, ports.Common) {
		t.Errorf("ports = %v, want common set", scanner.gotPorts)
	}

	var resp hostPortsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(resp.Results) != 2 || resp.Results[0].Port != 22 {
		t.Errorf("results not sorted by port: %+v", resp.Results)
	}
	if resp.Statistics.OpenPorts != 2 {
		t.Errorf("open ports = %d, want 2", resp.Statistics.OpenPorts)
	}
}

func TestHostPortsCustomList(t *testing.T) {
	scanner := &mockScanner{}
	s := New(&mockThreats{}, scanner)

	rec := do(t, s, "/api/hosts/10.0.0.5/ports?ports=80,8000-8002")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := []int{80, 8000, 8001, 8002}
	if !reflect.DeepEqual(scanner.gotPorts, want) {
		t.Errorf("ports = %v, want %v", scanner.gotPorts, want)
	}
}

func TestHostPortsBadInput(t *testing.T) {
	scanner := &mockScanner{}
	s := New(&mockThreats{}, scanner)

	for _, path := range []string{"/api/hosts/10.0.0/ports", "/api/hosts/10.0.0.5/ports?ports=0"} {
		rec := do(t, s, path)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
	if scanner.gotIP != "" {
		t.Error("scanner invoked for invalid input")
	}
}
