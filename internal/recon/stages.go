package recon

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vulnverified/netsentry/internal/engine"
)

// Keys holds provider API keys. Empty or placeholder keys select mock mode.
type Keys struct {
	VirusTotal string
	AbuseIPDB  string
}

// ScanStages returns the network-backed liveness checker and prober.
func ScanStages(disableUDP, udpPayloads bool) engine.Stages {
	return engine.Stages{
		Liveness: &Liveness{},
		Prober:   &Prober{DisableUDP: disableUDP, UDPPayloads: udpPayloads},
	}
}

// Providers builds the VirusTotal and AbuseIPDB clients. Each gets its own
// throttle matching the free-tier quota.
func Providers(keys Keys, userAgent string, progress engine.ProgressReporter) (*VirusTotal, *AbuseIPDB) {
	client := &http.Client{Timeout: fetchTimeout}

	vt := &VirusTotal{
		APIKey: keys.VirusTotal,
		Fetcher: &Fetcher{
			Client:    client,
			UserAgent: userAgent,
			// 4 requests per minute.
			Limiter: rate.NewLimiter(rate.Every(15*time.Second), 4),
		},
		Progress: progress,
	}
	abuse := &AbuseIPDB{
		APIKey: keys.AbuseIPDB,
		Fetcher: &Fetcher{
			Client:    client,
			UserAgent: userAgent,
			Limiter:   rate.NewLimiter(rate.Every(time.Second), 5),
		},
		Progress: progress,
	}
	return vt, abuse
}
