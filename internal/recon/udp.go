package recon

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"
)

// probeUDP sends one datagram and waits for any reply within timeout. Silence
// means closed or filtered. The returned banner describes the reply when it
// could be decoded.
func probeUDP(ctx context.Context, ip string, port int, timeout time.Duration, withPayload bool) (string, bool) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return "", false
	}
	defer conn.Close()

	_ = conn.SetDeadline(clipDeadline(ctx, time.Now().Add(timeout)))

	var payload []byte
	if withPayload {
		payload = udpPayload(port)
	}
	if _, err := conn.Write(payload); err != nil {
		return "", false
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return "", false
	}
	return describeUDPReply(port, buf[:n]), true
}

// udpPayload returns a minimal request the service on port will answer.
func udpPayload(port int) []byte {
	switch port {
	case 53:
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn("version.bind"), dns.TypeTXT)
		m.Question[0].Qclass = dns.ClassCHAOS
		b, err := m.Pack()
		if err != nil {
			return nil
		}
		return b
	case 123:
		// NTPv3 client request.
		req := make([]byte, 48)
		req[0] = 0x1b
		return req
	}
	return nil
}

func describeUDPReply(port int, reply []byte) string {
	if port != 53 {
		return ""
	}
	var m dns.Msg
	if err := m.Unpack(reply); err != nil || !m.Response {
		return ""
	}
	for _, rr := range m.Answer {
		if txt, ok := rr.(*dns.TXT); ok && len(txt.Txt) > 0 {
			return txt.Txt[0]
		}
	}
	return fmt.Sprintf("dns %s", dns.RcodeToString[m.Rcode])
}
