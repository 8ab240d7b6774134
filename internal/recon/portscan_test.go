package recon

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/vulnverified/netsentry/internal/engine"
)

// listenTCP starts a loopback listener whose connections are handled by serve.
func listenTCP(t *testing.T, serve func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				serve(conn)
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a loopback port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// drain consumes the client's CRLF so closing does not reset the connection.
func drain(conn net.Conn) {
	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	conn.Read(buf)
}

func TestProberDetectsOpenPortWithBanner(t *testing.T) {
	port := listenTCP(t, func(conn net.Conn) {
		conn.Write([]byte("SSH-2.0-OpenSSH_9.6\r\n"))
		drain(conn)
	})

	p := &Prober{}
	r := p.Probe(context.Background(), "127.0.0.1", port, 2*time.Second)
	if r == nil {
		t.Fatal("expected result for open port")
	}
	if r.Protocol != engine.TCP || r.State != engine.StateOpen {
		t.Errorf("protocol/state = %s/%s", r.Protocol, r.State)
	}
	if r.Banner != "SSH-2.0-OpenSSH_9.6" {
		t.Errorf("banner = %q", r.Banner)
	}
	if r.IP != "127.0.0.1" || r.Port != port {
		t.Errorf("endpoint = %s:%d", r.IP, r.Port)
	}
}

func TestProberSilentServiceHasEmptyBanner(t *testing.T) {
	port := listenTCP(t, drain)

	p := &Prober{BannerTimeout: 200 * time.Millisecond}
	r := p.Probe(context.Background(), "127.0.0.1", port, 2*time.Second)
	if r == nil {
		t.Fatal("expected result for open port")
	}
	if r.Banner != "" {
		t.Errorf("banner = %q, want empty", r.Banner)
	}
}

func TestProberClosedPort(t *testing.T) {
	p := &Prober{}
	if r := p.Probe(context.Background(), "127.0.0.1", closedPort(t), time.Second); r != nil {
		t.Errorf("expected nil for closed port, got %v", r)
	}
}

func TestProberUDPFallback(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen udp: %v", err)
	}
	defer pc.Close()

	go func() {
		buf := make([]byte, 1500)
		for {
			_, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			pc.WriteTo([]byte("pong"), addr)
		}
	}()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	p := &Prober{udpEligible: func(int) bool { return true }}
	r := p.Probe(context.Background(), "127.0.0.1", port, time.Second)
	if r == nil {
		t.Fatal("expected UDP result")
	}
	if r.Protocol != engine.UDP {
		t.Errorf("protocol = %s, want UDP", r.Protocol)
	}
}

func TestProberUDPSilenceIsClosed(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen udp: %v", err)
	}
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	p := &Prober{udpEligible: func(int) bool { return true }}
	if r := p.Probe(context.Background(), "127.0.0.1", port, 200*time.Millisecond); r != nil {
		t.Errorf("expected nil for silent UDP port, got %v", r)
	}
}

func TestProberUDPDisabled(t *testing.T) {
	p := &Prober{DisableUDP: true, udpEligible: func(int) bool {
		t.Error("eligibility consulted with UDP disabled")
		return true
	}}
	if r := p.Probe(context.Background(), "127.0.0.1", closedPort(t), time.Second); r != nil {
		t.Errorf("expected nil, got %v", r)
	}
}

func TestDNSPayloadIsQuery(t *testing.T) {
	var m dns.Msg
	if err := m.Unpack(udpPayload(53)); err != nil {
		t.Fatalf("payload does not unpack: %v", err)
	}
	if m.Response || len(m.Question) != 1 {
		t.Fatalf("unexpected message: %v", m)
	}
	q := m.Question[0]
	if q.Name != "version.bind." || q.Qtype != dns.TypeTXT || q.Qclass != dns.ClassCHAOS {
		t.Errorf("question = %v", q)
	}

	if len(udpPayload(123)) != 48 {
		t.Error("NTP payload should be 48 bytes")
	}
	if udpPayload(161) != nil {
		t.Error("expected empty payload for SNMP")
	}
}

func TestDescribeDNSReply(t *testing.T) {
	var q dns.Msg
	if err := q.Unpack(udpPayload(53)); err != nil {
		t.Fatal(err)
	}

	reply := new(dns.Msg)
	reply.SetReply(&q)
	reply.Answer = append(reply.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: "version.bind.", Rrtype: dns.TypeTXT, Class: dns.ClassCHAOS},
		Txt: []string{"9.18.24"},
	})
	b, err := reply.Pack()
	if err != nil {
		t.Fatal(err)
	}
	if got := describeUDPReply(53, b); got != "9.18.24" {
		t.Errorf("describe = %q, want 9.18.24", got)
	}

	refused := new(dns.Msg)
	refused.SetRcode(&q, dns.RcodeRefused)
	b, err = refused.Pack()
	if err != nil {
		t.Fatal(err)
	}
	if got := describeUDPReply(53, b); got != "dns REFUSED" {
		t.Errorf("describe = %q, want dns REFUSED", got)
	}

	if got := describeUDPReply(53, []byte{0x01}); got != "" {
		t.Errorf("garbage reply described as %q", got)
	}
}

func TestGrabBanner(t *testing.T) {
	port := listenTCP(t, func(conn net.Conn) {
		conn.Write([]byte("  220 mail.example.com ESMTP\r\n"))
		drain(conn)
	})

	banner, err := GrabBanner(context.Background(), "127.0.0.1", port, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if banner != "220 mail.example.com ESMTP" {
		t.Errorf("banner = %q", banner)
	}

	if _, err := GrabBanner(context.Background(), "127.0.0.1", closedPort(t), time.Second); err == nil {
		t.Error("expected error for closed port")
	}
}
