package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vulnverified/netsentry/internal/engine"
)

var portHeaders = []string{"IP", "Port", "Proto", "Service", "Banner"}

// WritePortTable renders open ports as a styled terminal table. Results are
// written in the order given; callers sort with engine.SortResults.
func WritePortTable(w io.Writer, results []engine.PortScanResult, verbose, noColor bool) {
	if len(results) == 0 {
		fmt.Fprintln(w, "\nNo open ports found.")
		return
	}

	if verbose {
		fmt.Fprintln(w)
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, r.Detailed())
		}
		return
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.IP,
			strconv.Itoa(r.Port),
			string(r.Protocol),
			r.Service,
			truncate(firstLine(r.Banner), 40),
		})
	}

	fmt.Fprintln(w)

	if noColor {
		writeSimpleTable(w, portHeaders, rows)
		return
	}

	t := table.New().
		Headers(portHeaders...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
			}
			if col == 3 && row >= 0 && row < len(rows) && rows[row][3] == "Unknown" {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		})

	for _, row := range rows {
		t.Row(row...)
	}

	fmt.Fprintln(w, t.Render())
}

func writeSimpleTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}

	writeRow(headers)
	for i, width := range widths {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", width))
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		writeRow(row)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
