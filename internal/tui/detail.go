package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/schema"
	"github.com/hmans/speako/internal/search"
	"github.com/hmans/speako/internal/ui"
)

// Cached glamour renderer - initialized once
var (
	glamourRenderer     *glamour.TermRenderer
	glamourRendererOnce sync.Once
)

func getGlamourRenderer() *glamour.TermRenderer {
	glamourRendererOnce.Do(func() {
		var err error
		glamourRenderer, err = glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			glamourRenderer = nil
		}
	})
	return glamourRenderer
}

// detailModel shows one record with its fields and incoming references
type detailModel struct {
	viewport viewport.Model
	resolver *resolver.Resolver
	index    *search.Live
	t        *schema.Type
	rec      record.Record
	width    int
	height   int
	ready    bool
}

func newDetailModel(r *resolver.Resolver, idx *search.Live, typename string, rec record.Record, width, height int) detailModel {
	t, _ := r.Schema().Type(typename)
	m := detailModel{
		resolver: r,
		index:    idx,
		t:        t,
		rec:      rec,
		width:    width,
		height:   height,
	}
	if width > 0 && height > 0 {
		m.viewport = viewport.New(width-4, height-4)
		m.viewport.SetContent(m.renderBody())
		m.ready = true
	}
	return m
}

func (m detailModel) Init() tea.Cmd {
	return nil
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderBody())

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "backspace":
			return m, func() tea.Msg {
				return backToListMsg{}
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m detailModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorMuted).
		Width(m.width - 2)
	body := border.Render(m.viewport.View())

	scrollPct := int(m.viewport.ScrollPercent() * 100)
	footer := helpStyle.Render(fmt.Sprintf("%d%%", scrollPct)) + "  " +
		helpKeyStyle.Render("j/k") + " " + helpStyle.Render("scroll") + "  " +
		helpKeyStyle.Render("esc") + " " + helpStyle.Render("back") + "  " +
		helpKeyStyle.Render("q") + " " + helpStyle.Render("quit")

	return body + "\n" + footer
}

func (m detailModel) renderBody() string {
	md := recordMarkdown(m.t, m.rec, m.references())

	renderer := getGlamourRenderer()
	if renderer == nil {
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(rendered)
}

// references lists the records that link to the shown one.
func (m detailModel) references() []string {
	id, ok := m.rec.ID()
	if !ok || m.t == nil || m.index == nil {
		return nil
	}
	hits, err := m.index.FindReferences(m.t.Name, id)
	if err != nil {
		return nil
	}
	refs := make([]string, len(hits))
	for i, h := range hits {
		refs[i] = fmt.Sprintf("%s #%d", h.TypeName, h.ID)
	}
	return refs
}

// recordMarkdown renders rec as a markdown document: a heading, a field
// table in declaration order and the list of referencing records.
func recordMarkdown(t *schema.Type, rec record.Record, refs []string) string {
	var sb strings.Builder

	id := "?"
	if n, ok := rec.ID(); ok {
		id = fmt.Sprint(n)
	}
	name := "Record"
	if t != nil {
		name = t.Name
	}
	fmt.Fprintf(&sb, "# %s #%s\n\n", name, id)

	sb.WriteString("| Field | Value |\n|---|---|\n")
	for _, key := range fieldOrder(t, rec) {
		if key == record.IDField {
			continue
		}
		v, _ := rec.Get(key)
		fmt.Fprintf(&sb, "| %s | %s |\n", key, markdownCell(v))
	}

	if len(refs) > 0 {
		sb.WriteString("\n## Referenced by\n\n")
		for _, r := range refs {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
	}
	return sb.String()
}

// fieldOrder returns the declared fields of t followed by any undeclared
// keys of rec.
func fieldOrder(t *schema.Type, rec record.Record) []string {
	var keys []string
	seen := make(map[string]bool)
	if t != nil {
		for _, f := range t.Fields {
			keys = append(keys, f.Name)
			seen[f.Name] = true
		}
	}
	for _, k := range rec.Keys() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

func markdownCell(v any) string {
	if v == nil {
		return "-"
	}
	if rel, ok := record.AsRecord(v); ok {
		ref := ui.FormatValue(rel)
		var parts []string
		for _, k := range rel.Keys() {
			if k == record.IDField {
				continue
			}
			if fv, _ := rel.Get(k); fv != nil && record.IsScalar(fv) {
				parts = append(parts, ui.FormatValue(fv))
			}
		}
		if len(parts) > 0 {
			ref += " (" + strings.Join(parts, ", ") + ")"
		}
		return ref
	}
	return strings.ReplaceAll(ui.FormatValue(v), "|", `\|`)
}
