// Package server exposes threat lookups and host scans over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/internal/intel"
)

// ThreatSource resolves the reputation of an IP.
type ThreatSource interface {
	GetThreatIntelligence(ctx context.Context, ip string) intel.ThreatReport
}

// HostScanner probes the ports of a single host.
type HostScanner interface {
	ScanHost(ctx context.Context, ip string, ports []int) ([]engine.PortScanResult, error)
}

// Server wires the API handlers and dependencies.
type Server struct {
	Intel   ThreatSource
	Scanner HostScanner
	Router  chi.Router
}

// New constructs the router and registers routes.
func New(threats ThreatSource, scanner HostScanner) *Server {
	s := &Server{Intel: threats, Scanner: scanner}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/threat/{ip}", s.handleThreat)
	r.Get("/api/hosts/{ip}/ports", s.handleHostPorts)

	s.Router = r
	return s
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.Router
}

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func errorResponse(w http.ResponseWriter, msg string, status int) {
	jsonResponse(w, map[string]string{"error": msg}, status)
}
