package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hmans/speako/internal/predicate"
	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/schema"
	"github.com/hmans/speako/internal/ui"
)

// recordItem wraps a record to implement list.Item
type recordItem struct {
	t   *schema.Type
	rec record.Record
}

func (i recordItem) id() string {
	if id, ok := i.rec.ID(); ok {
		return fmt.Sprintf("#%d", id)
	}
	return "#?"
}

// Title joins the record's scalar field values.
func (i recordItem) Title() string {
	var parts []string
	for _, f := range i.t.ScalarFields() {
		if f.Name == record.IDField {
			continue
		}
		if v, ok := i.rec.Get(f.Name); ok && v != nil {
			parts = append(parts, ui.FormatValue(v))
		}
	}
	return strings.Join(parts, " · ")
}

func (i recordItem) Description() string { return i.t.Name + " " + i.id() }
func (i recordItem) FilterValue() string { return i.Title() + " " + i.id() }

// itemDelegate handles rendering of list items
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(recordItem)
	if !ok {
		return
	}

	idWidth := 8
	idCol := lipgloss.NewStyle().Width(idWidth).Render(ui.ID.Render(item.id()))

	title := item.Title()
	maxTitleWidth := m.Width() - idWidth - 4
	if maxTitleWidth > 3 && len([]rune(title)) > maxTitleWidth {
		title = string([]rune(title)[:maxTitleWidth-3]) + "..."
	}

	var str string
	if index == m.Index() {
		cursor := lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Render("▌")
		str = cursor + " " + idCol + lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary).Render(title)
	} else {
		str = "  " + idCol + title
	}

	fmt.Fprint(w, str)
}

// listModel is the model for the record list of one type at a time
type listModel struct {
	ctx      context.Context
	list     list.Model
	resolver *resolver.Resolver
	types    []string
	current  int
	width    int
	height   int
	err      error
}

func newListModel(ctx context.Context, r *resolver.Resolver, types []string, current int) listModel {
	l := list.New([]list.Item{}, itemDelegate{}, 0, 0)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.Styles.Title = listTitleStyle
	l.Styles.TitleBar = lipgloss.NewStyle().Padding(0, 0, 1, 2)
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(ui.ColorPrimary)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(ui.ColorPrimary)

	m := listModel{
		ctx:      ctx,
		list:     l,
		resolver: r,
		types:    types,
		current:  current,
	}
	m.list.Title = m.typename()
	return m
}

// recordsLoadedMsg is sent when the records of a type are loaded
type recordsLoadedMsg struct {
	typename string
	records  []record.Record
}

// errMsg is sent when an error occurs
type errMsg struct {
	err error
}

func (m listModel) typename() string {
	if len(m.types) == 0 {
		return ""
	}
	return m.types[m.current]
}

func (m listModel) filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m listModel) Init() tea.Cmd {
	return m.loadRecords
}

func (m listModel) loadRecords() tea.Msg {
	typename := m.typename()
	if typename == "" {
		return recordsLoadedMsg{}
	}
	recs, err := m.resolver.QueryPredicate(m.ctx, typename, predicate.All())
	if err != nil {
		return errMsg{err}
	}
	return recordsLoadedMsg{typename: typename, records: recs}
}

// switchType moves to the type delta steps away and reloads.
func (m listModel) switchType(delta int) (listModel, tea.Cmd) {
	if len(m.types) < 2 {
		return m, nil
	}
	m.current = (m.current + delta + len(m.types)) % len(m.types)
	m.list.Title = m.typename()
	m.list.ResetFilter()
	m.list.ResetSelected()
	return m, m.loadRecords
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Reserve space for border and footer
		m.list.SetSize(msg.Width-2, msg.Height-4)

	case recordsLoadedMsg:
		// A stale load for a type we already left.
		if msg.typename != m.typename() {
			return m, nil
		}
		t, ok := m.resolver.Schema().Type(msg.typename)
		if !ok {
			return m, nil
		}
		items := make([]list.Item, len(msg.records))
		for i, r := range msg.records {
			items[i] = recordItem{t: t, rec: r}
		}
		return m, m.list.SetItems(items)

	case storeChangedMsg:
		for _, e := range msg.events {
			if e.TypeName == m.typename() {
				return m, m.loadRecords
			}
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if !m.filtering() {
			switch msg.String() {
			case "tab":
				return m.switchType(1)
			case "shift+tab":
				return m.switchType(-1)
			case "enter":
				if item, ok := m.list.SelectedItem().(recordItem); ok {
					return m, func() tea.Msg {
						return selectRecordMsg{typename: item.t.Name, rec: item.rec}
					}
				}
			}
		}
	}

	// Always forward to the list component
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m listModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	if m.width == 0 {
		return "Loading..."
	}

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorMuted).
		Width(m.width - 2).
		Height(m.height - 4)

	content := border.Render(m.list.View())

	help := helpKeyStyle.Render("enter") + " " + helpStyle.Render("view") + "  " +
		helpKeyStyle.Render("tab") + " " + helpStyle.Render("next type") + "  " +
		helpKeyStyle.Render("/") + " " + helpStyle.Render("filter") + "  " +
		helpKeyStyle.Render("q") + " " + helpStyle.Render("quit")

	return content + "\n" + help
}
