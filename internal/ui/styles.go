package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/hmans/speako/internal/record"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#6B7280") // Gray
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#9CA3AF") // Light gray
	ColorBlue      = lipgloss.Color("#3B82F6") // Blue
)

// Text styles
var (
	Bold      = lipgloss.NewStyle().Bold(true)
	Muted     = lipgloss.NewStyle().Foreground(ColorMuted)
	Primary   = lipgloss.NewStyle().Foreground(ColorPrimary)
	Success   = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning   = lipgloss.NewStyle().Foreground(ColorWarning)
	Danger    = lipgloss.NewStyle().Foreground(ColorDanger)
	Secondary = lipgloss.NewStyle().Foreground(ColorSecondary)
)

// ID style - distinctive for record ids
var ID = lipgloss.NewStyle().
	Foreground(ColorPrimary).
	Bold(true)

// Reference style for related records
var Reference = lipgloss.NewStyle().Foreground(ColorBlue)

// Header style for section headers
var Header = lipgloss.NewStyle().
	Foreground(ColorPrimary).
	Bold(true).
	MarginBottom(1)

// FormatValue returns the plain text shown for a field value. Related
// records are shown as their type-less id reference, e.g. "#2".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	if rec, ok := record.AsRecord(v); ok {
		if id, ok := rec.ID(); ok {
			return "#" + strconv.FormatInt(id, 10)
		}
		return "#?"
	}
	return fmt.Sprint(v)
}

// RenderValue returns the styled text for a field value.
func RenderValue(v any) string {
	text := FormatValue(v)
	switch v.(type) {
	case nil:
		return Muted.Render("-")
	case int64, float64:
		return Success.Render(text)
	case bool:
		return Warning.Render(text)
	case string:
		return text
	}
	return Reference.Render(text)
}
