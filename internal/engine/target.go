package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidConfig is returned when an engine is built with out-of-range settings.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidTarget is returned when an address, prefix, octet range or port is malformed.
	ErrInvalidTarget = errors.New("invalid target")
)

// ScanTarget is a validated IPv4 address plus an ordered set of ports.
type ScanTarget struct {
	ip    string
	ports []int
}

// NewScanTarget validates ip and ports. Duplicate ports are dropped,
// keeping first-seen order.
func NewScanTarget(ip string, ports []int) (ScanTarget, error) {
	if !IsValidIP(ip) {
		return ScanTarget{}, fmt.Errorf("%w: %q is not a valid IPv4 address", ErrInvalidTarget, ip)
	}
	seen := make(map[int]bool, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if p < 1 || p > 65535 {
			return ScanTarget{}, fmt.Errorf("%w: port %d out of range (1-65535)", ErrInvalidTarget, p)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return ScanTarget{ip: ip, ports: out}, nil
}

// IP returns the target address.
func (t ScanTarget) IP() string { return t.ip }

// Ports returns a copy of the target's ports.
func (t ScanTarget) Ports() []int {
	out := make([]int, len(t.ports))
	copy(out, t.ports)
	return out
}

// IsValidIP reports whether s is a dotted-quad IPv4 address with every
// octet in 0-255.
func IsValidIP(s string) bool {
	if strings.HasSuffix(s, ".") {
		return false
	}
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if !validOctet(p) {
			return false
		}
	}
	return true
}

// NormalizePrefix validates a three-octet network prefix such as "192.168.1"
// or "192.168.1." and returns it with a trailing dot.
func NormalizePrefix(prefix string) (string, error) {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	parts := strings.Split(p, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: prefix %q must have three octets", ErrInvalidTarget, prefix)
	}
	for _, o := range parts {
		if !validOctet(o) {
			return "", fmt.Errorf("%w: prefix %q has invalid octet %q", ErrInvalidTarget, prefix, o)
		}
	}
	return p + ".", nil
}

func validOctet(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 255
}
