package recon

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/vulnverified/netsentry/internal/engine"
	"github.com/vulnverified/netsentry/pkg/ports"
)

const (
	bannerTimeout = 2 * time.Second
	bannerMaxLen  = 1024
)

// Prober implements engine.PortProber with a TCP connect probe. Ports that
// refuse TCP and usually speak UDP (DNS, NTP, SNMP) get a single UDP probe.
type Prober struct {
	// BannerTimeout bounds the banner read after a successful connect.
	BannerTimeout time.Duration
	// DisableUDP turns off the UDP fallback.
	DisableUDP bool
	// UDPPayloads sends a protocol request (DNS, NTP) instead of an empty
	// datagram. Services that ignore empty datagrams then show up as open.
	UDPPayloads bool

	udpEligible func(port int) bool
}

// Probe returns a result for an open port and nil otherwise.
func (p *Prober) Probe(ctx context.Context, ip string, port int, timeout time.Duration) *engine.PortScanResult {
	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if p.DisableUDP || !p.eligible(port) || ctx.Err() != nil {
			return nil
		}
		banner, ok := probeUDP(ctx, ip, port, timeout, p.UDPPayloads)
		if !ok {
			return nil
		}
		return &engine.PortScanResult{
			IP:         ip,
			Port:       port,
			Protocol:   engine.UDP,
			State:      engine.StateOpen,
			Service:    ports.Service(port),
			Banner:     banner,
			CapturedAt: time.Now(),
		}
	}
	defer conn.Close()

	bt := p.BannerTimeout
	if bt <= 0 {
		bt = bannerTimeout
	}
	return &engine.PortScanResult{
		IP:         ip,
		Port:       port,
		Protocol:   engine.TCP,
		State:      engine.StateOpen,
		Service:    ports.Service(port),
		Banner:     readBanner(ctx, conn, bt),
		CapturedAt: time.Now(),
	}
}

func (p *Prober) eligible(port int) bool {
	if p.udpEligible != nil {
		return p.udpEligible(port)
	}
	return ports.UDPEligible(port)
}

// GrabBanner connects to ip:port and returns whatever the service sends back
// after a CRLF. An empty string with a nil error means the service stayed quiet.
func GrabBanner(ctx context.Context, ip string, port int, timeout time.Duration) (string, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return readBanner(ctx, conn, bannerTimeout), nil
}

func readBanner(ctx context.Context, conn net.Conn, timeout time.Duration) string {
	_ = conn.SetDeadline(clipDeadline(ctx, time.Now().Add(timeout)))

	// Nudge line-oriented services that wait for input.
	if _, err := conn.Write([]byte("\r\n")); err != nil {
		return ""
	}

	buf := make([]byte, bannerMaxLen)
	n, _ := conn.Read(buf)
	if n <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(buf[:n]), ""))
}

// clipDeadline returns the earlier of d and the context deadline.
func clipDeadline(ctx context.Context, d time.Time) time.Time {
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
