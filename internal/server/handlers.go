package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/pkg/ports"
)

type hostPortsResponse struct {
	IP         string                  `json:"ip"`
	Results    []engine.PortScanResult `json:"results"`
	Statistics engine.ScanStatistics   `json:"statistics"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleThreat(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if !engine.IsValidIP(ip) {
		errorResponse(w, "invalid IPv4 address", http.StatusBadRequest)
		return
	}
	jsonResponse(w, s.Intel.GetThreatIntelligence(r.Context(), ip), http.StatusOK)
}

func (s *Server) handleHostPorts(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if !engine.IsValidIP(ip) {
		errorResponse(w, "invalid IPv4 address", http.StatusBadRequest)
		return
	}

	scanPorts := ports.Common
	if q := r.URL.Query().Get("ports"); q != "" {
		parsed, err := ports.Parse(q)
		if err != nil {
			errorResponse(w, "invalid ports: "+err.Error(), http.StatusBadRequest)
			return
		}
		scanPorts = parsed
	}

	results, err := s.Scanner.ScanHost(r.Context(), ip, scanPorts)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	engine.SortResults(results)
	jsonResponse(w, hostPortsResponse{
		IP:         ip,
		Results:    results,
		Statistics: engine.Stats(results),
	}, http.StatusOK)
}
