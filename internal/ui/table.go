package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/schema"
)

const (
	maxColumnWidth = 40
	columnGap      = 2
)

// Column is one table column: a field name and its fixed display width.
type Column struct {
	Field string
	Width int
}

// Columns computes the table columns for t: every single-valued field in
// declaration order, wide enough for its header and the widest value in
// recs, capped at maxColumnWidth.
func Columns(t *schema.Type, recs []record.Record) []Column {
	var cols []Column
	for _, f := range t.Fields {
		if f.List {
			continue
		}
		width := len(f.Name)
		for _, r := range recs {
			if w := runeWidth(FormatValue(r[f.Name])); w > width {
				width = w
			}
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		cols = append(cols, Column{Field: f.Name, Width: width})
	}
	return cols
}

// RenderTable renders recs as an aligned table with a header row.
func RenderTable(t *schema.Type, recs []record.Record) string {
	var sb strings.Builder

	cols := Columns(t, recs)
	headerCol := lipgloss.NewStyle().Foreground(ColorMuted)

	cells := make([]string, len(cols))
	dividerWidth := 0
	for i, c := range cols {
		cells[i] = cellStyle(c, i == len(cols)-1).Render(headerCol.Render(strings.ToUpper(c.Field)))
		dividerWidth += c.Width + columnGap
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	sb.WriteString("\n")
	sb.WriteString(Muted.Render(strings.Repeat("─", dividerWidth)))
	sb.WriteString("\n")

	for _, r := range recs {
		for i, c := range cols {
			cells[i] = cellStyle(c, i == len(cols)-1).Render(renderCell(c, r))
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderCount renders a "N record(s)" footer line.
func RenderCount(n int) string {
	if n == 1 {
		return Muted.Render("1 record")
	}
	return Muted.Render(strconv.Itoa(n) + " records")
}

func cellStyle(c Column, last bool) lipgloss.Style {
	if last {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Width(c.Width + columnGap)
}

func renderCell(c Column, r record.Record) string {
	v := r[c.Field]
	text := FormatValue(v)
	if runeWidth(text) > c.Width {
		return truncateString(text, c.Width)
	}
	if c.Field == record.IDField {
		return ID.Render(text)
	}
	return RenderValue(v)
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// runeWidth returns the visual width of a string (counting runes, not bytes).
func runeWidth(s string) int {
	return len([]rune(s))
}
