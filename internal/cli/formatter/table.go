package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const tableGap = "  "

// Column describes one table column. Right aligns counts and day windows;
// Max truncates plain cells (titles) to that many runes when positive.
type Column struct {
	Title string
	Right bool
	Max   int
}

// Cols builds left-aligned columns from titles.
func Cols(titles ...string) []Column {
	out := make([]Column, len(titles))
	for i, t := range titles {
		out[i] = Column{Title: t}
	}
	return out
}

// RenderTable renders rows under left-aligned headers.
func RenderTable(headers []string, rows [][]string) string {
	return RenderColumns(Cols(headers...), rows)
}

// RenderColumns lays rows out under cols with a dim rule below the header.
// Widths use visible width, so cells styled with lipgloss line up; missing
// trailing cells render empty.
func RenderColumns(cols []Column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c.Title)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			if i >= len(row) {
				continue
			}
			cell := row[i]
			if c.Max > 0 {
				cell = Truncate(cell, c.Max)
			}
			cells[r][i] = cell
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	header := make([]string, len(cols))
	rule := make([]string, len(cols))
	for i, c := range cols {
		header[i] = StyleHeader.Render(c.Title)
		rule[i] = StyleDim.Render(strings.Repeat("─", widths[i]))
	}
	writeRow(&b, cols, widths, header)
	writeRow(&b, cols, widths, rule)
	for _, row := range cells {
		writeRow(&b, cols, widths, row)
	}
	return b.String()
}

// writeRow pads every cell to its column width except a trailing
// left-aligned one, so lines carry no trailing blanks.
func writeRow(b *strings.Builder, cols []Column, widths []int, row []string) {
	last := len(cols) - 1
	for i, cell := range row {
		pad := strings.Repeat(" ", max(widths[i]-lipgloss.Width(cell), 0))
		switch {
		case cols[i].Right:
			b.WriteString(pad)
			b.WriteString(cell)
		case i == last:
			b.WriteString(cell)
		default:
			b.WriteString(cell)
			b.WriteString(pad)
		}
		if i < last {
			b.WriteString(tableGap)
		}
	}
	b.WriteString("\n")
}
