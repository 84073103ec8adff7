// Package tui implements the interactive record browser.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hmans/speako/internal/record"
	"github.com/hmans/speako/internal/recordstore"
	"github.com/hmans/speako/internal/resolver"
	"github.com/hmans/speako/internal/search"
)

// viewState represents which view is currently active
type viewState int

const (
	viewList viewState = iota
	viewDetail
)

// App is the main TUI application model
type App struct {
	state    viewState
	list     listModel
	detail   detailModel
	resolver *resolver.Resolver
	index    *search.Live
	width    int
	height   int
}

// New creates a browser over the records of r, starting at typename. An
// empty typename starts at the first declared type. idx supplies the
// references shown with a record.
func New(ctx context.Context, r *resolver.Resolver, idx *search.Live, typename string) *App {
	types := r.Types()
	start := 0
	for i, name := range types {
		if name == typename {
			start = i
		}
	}
	return &App{
		state:    viewList,
		resolver: r,
		index:    idx,
		list:     newListModel(ctx, r, types, start),
	}
}

// storeChangedMsg is sent when the store reports new events.
type storeChangedMsg struct {
	events []recordstore.Event
}

// selectRecordMsg is sent when a record is selected
type selectRecordMsg struct {
	typename string
	rec      record.Record
}

// backToListMsg signals navigation back to the list
type backToListMsg struct{}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return a.list.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state == viewDetail {
				return a, tea.Quit
			}
			// For list, only quit if not filtering
			if a.state == viewList && !a.list.filtering() {
				return a, tea.Quit
			}
		}

	case selectRecordMsg:
		a.state = viewDetail
		a.detail = newDetailModel(a.resolver, a.index, msg.typename, msg.rec, a.width, a.height)
		return a, a.detail.Init()

	case backToListMsg:
		a.state = viewList
		return a, nil

	case storeChangedMsg:
		// Reload the list whichever view is showing.
		a.list, cmd = a.list.Update(msg)
		return a, cmd
	}

	// Forward all messages to the current view
	switch a.state {
	case viewList:
		a.list, cmd = a.list.Update(msg)
	case viewDetail:
		a.detail, cmd = a.detail.Update(msg)
	}

	return a, cmd
}

// View renders the current view
func (a *App) View() string {
	switch a.state {
	case viewList:
		return a.list.View()
	case viewDetail:
		return a.detail.View()
	}
	return ""
}

// Run starts the browser and blocks until it exits. Store changes made
// while it runs, for example by a dataset watcher, refresh the list.
func Run(ctx context.Context, r *resolver.Resolver, idx *search.Live, typename string) error {
	p := tea.NewProgram(New(ctx, r, idx, typename), tea.WithAltScreen(), tea.WithContext(ctx))

	events, unsubscribe := r.Store().Subscribe()
	defer unsubscribe()
	go func() {
		for batch := range events {
			p.Send(storeChangedMsg{events: batch})
		}
	}()

	_, err := p.Run()
	return err
}
