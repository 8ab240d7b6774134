package recon

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/vulnverified/netsentry/internal/engine"
)

// livenessPorts are tried in parallel. Echo first, then the ports most
// hosts expose.
var livenessPorts = []int{7, 80, 443, 22, 445}

// Liveness implements engine.LivenessChecker with TCP pings. A host counts
// as alive when any port accepts or actively refuses a connection.
type Liveness struct {
	Ports []int
}

// IsAlive reports whether ip answered within timeout.
func (l *Liveness) IsAlive(ctx context.Context, ip string, timeout time.Duration) bool {
	if !engine.IsValidIP(ip) || ctx.Err() != nil {
		return false
	}

	probePorts := l.Ports
	if len(probePorts) == 0 {
		probePorts = livenessPorts
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	answered := make(chan bool, len(probePorts))
	for _, port := range probePorts {
		go func(port int) {
			var dialer net.Dialer
			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
			if err == nil {
				conn.Close()
				answered <- true
				return
			}
			answered <- errors.Is(err, syscall.ECONNREFUSED)
		}(port)
	}

	for range probePorts {
		if <-answered {
			return true
		}
	}
	return false
}
