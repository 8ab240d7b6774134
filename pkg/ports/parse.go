package ports

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a comma-separated list of ports and a-b ranges, keeping the
// first occurrence of each port.
func Parse(s string) ([]int, error) {
	var result []int
	seen := make(map[int]bool)

	add := func(port int) {
		if !seen[port] {
			seen[port] = true
			result = append(result, port)
		}
	}

	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "-") {
			start, end, err := ParseRange(p)
			if err != nil {
				return nil, err
			}
			for port := start; port <= end; port++ {
				add(port)
			}
			continue
		}
		port, err := parsePort(p)
		if err != nil {
			return nil, err
		}
		add(port)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no valid ports specified")
	}
	return result, nil
}

// ParseRange parses "start-end" into validated bounds.
func ParseRange(s string) (int, int, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q (want start-end)", s)
	}
	start, err := parsePort(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	end, err := parsePort(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, fmt.Errorf("range start %d exceeds end %d", start, end)
	}
	return start, end, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range (1-65535)", port)
	}
	return port, nil
}
