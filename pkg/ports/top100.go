// Package ports provides common port definitions for network scanning.
package ports

import "sort"

// Top100 is the top 100 most common TCP ports based on nmap frequency data.
// Sorted ascending for consistent output.
var Top100 = []int{
	21, 22, 23, 25, 26, 53, 80, 81, 110, 111,
	113, 135, 139, 143, 179, 199, 443, 445, 465, 514,
	515, 548, 554, 587, 631, 636, 646, 993, 995, 1025,
	1026, 1027, 1028, 1029, 1110, 1433, 1720, 1723, 1755, 1900,
	2000, 2001, 2049, 2121, 2717, 3000, 3128, 3306, 3389, 3986,
	4899, 5000, 5009, 5051, 5060, 5101, 5190, 5357, 5432, 5631,
	5666, 5800, 5900, 6000, 6001, 6646, 7070, 8000, 8008, 8009,
	8080, 8081, 8443, 8888, 9090, 9100, 9999, 10000, 32768, 49152,
	49153, 49154, 49155, 49156, 49157, 1080, 1443, 2082, 2083, 2086,
	2087, 4443, 6379, 6443, 8443, 8880, 9200, 9443, 27017, 27018,
}

// Common is the default port set for host and range scans.
var Common = []int{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443,
	445, 993, 995, 1723, 3306, 3389, 5900, 8080,
}

func init() {
	Top100 = dedupe(Top100)
	sort.Ints(Top100)
}

// WellKnown returns Common followed by every other port in 1-1024.
func WellKnown() []int {
	out := make([]int, 0, 1024+len(Common))
	seen := make(map[int]bool, 1024)
	for _, p := range Common {
		seen[p] = true
		out = append(out, p)
	}
	for p := 1; p <= 1024; p++ {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// Range returns every port from start to end inclusive.
// Returns nil if the bounds are outside 1-65535 or start > end.
func Range(start, end int) []int {
	if start < 1 || end > 65535 || start > end {
		return nil
	}
	out := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		out = append(out, p)
	}
	return out
}

func dedupe(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, p := range in {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
