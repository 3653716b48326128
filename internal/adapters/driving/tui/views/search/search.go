// Package search provides the listings search view for the TUI.
package search

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driving"
)

// View is the search box, the listings it found and a status bar.
// It follows one sync at a time; starting another abandons the previous one.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ListingList
	statusbar *status.Bar
	spinner   spinner.Model
	help      help.Model

	listings driving.ListingService
	ctx      context.Context

	// generation numbers syncs; events tagged with an older one are dropped.
	generation int
	events     <-chan domain.Event
	cancel     context.CancelFunc

	query      string
	loading    bool
	errMessage string
	err        error
	focusInput bool
	showHelp   bool

	width  int
	height int
	ready  bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, listings driving.ListingService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	h := help.New()
	h.Styles.ShortDesc = s.Help
	h.Styles.FullDesc = s.Help

	return &View{
		styles:    s,
		keymap:    km,
		input:     input.NewQueryInput(s),
		list:      list.NewListingList(s),
		statusbar: status.NewBar(s, km),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(s.Title),
		),
		help:       h,
		listings:   listings,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the parent context of every sync the view starts.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the cached listings and starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.StartSync("", false))
}

// StartSync abandons any running sync and starts a new one for query.
func (v *View) StartSync(query string, refresh bool) tea.Cmd {
	if v.listings == nil {
		return func() tea.Msg {
			return messages.ErrorOccurred{Err: ErrNoListingService}
		}
	}

	v.Close()
	v.generation++
	v.query = query

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	v.events = v.listings.Stream(ctx, refresh, query)

	return waitForEvent(v.generation, v.events)
}

// waitForEvent reads the next event of a sync.
func waitForEvent(generation int, events <-chan domain.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.SyncClosed{Generation: generation}
		}
		return messages.SyncEvent{Generation: generation, Event: ev}
	}
}

// Close cancels the running sync, if any.
func (v *View) Close() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchRequested:
		return v, v.StartSync(msg.Query, msg.Refresh)

	case messages.SyncEvent:
		if msg.Generation != v.generation {
			return v, nil
		}
		cmd := v.handleEvent(msg.Event)
		return v, tea.Batch(cmd, waitForEvent(msg.Generation, v.events))

	case messages.SyncClosed:
		if msg.Generation == v.generation {
			v.finish()
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil

	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.statusbar.SetSpinner(v.spinner.View())
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleEvent folds one sync event into the view.
func (v *View) handleEvent(ev domain.Event) tea.Cmd {
	switch ev.Kind {
	case domain.EventLoading:
		if ev.Loading {
			v.loading = true
			v.errMessage = ""
			v.statusbar.SetState(status.StateLoading)
			return v.spinner.Tick
		}
		v.finish()
	case domain.EventSuccess:
		v.list.SetListings(ev.Data)
		v.statusbar.SetCount(len(ev.Data))
	case domain.EventError:
		v.errMessage = ev.Message
		v.err = ev.Err
		v.statusbar.SetMessage(ev.Message)
	}
	return nil
}

// finish settles the status bar once a sync is over.
func (v *View) finish() {
	v.loading = false
	v.statusbar.SetSpinner("")
	if v.errMessage != "" {
		v.statusbar.SetState(status.StateError)
		return
	}
	v.statusbar.SetState(status.StateResults)
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if key.Matches(msg, v.keymap.Refresh) {
		query := v.query
		if v.focusInput {
			query = v.input.Query()
		}
		return v, v.StartSync(query, true)
	}

	if v.focusInput {
		switch {
		case key.Matches(msg, v.keymap.Search):
			v.focusInput = false
			v.input.Blur()
			return v, v.StartSync(v.input.Query(), false)
		case key.Matches(msg, v.keymap.Back):
			if v.list.Count() > 0 {
				v.focusInput = false
				v.input.Blur()
			}
			return v, nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case key.Matches(msg, v.keymap.Quit):
		v.Close()
		return v, tea.Quit
	case key.Matches(msg, v.keymap.Help):
		v.showHelp = !v.showHelp
		v.help.ShowAll = v.showHelp
	case key.Matches(msg, v.keymap.Up):
		v.list.MoveUp()
	case key.Matches(msg, v.keymap.Down):
		v.list.MoveDown()
	case key.Matches(msg, v.keymap.NewSearch):
		v.input.SetValue("")
		v.focusInput = true
		return v, v.input.Focus()
	case key.Matches(msg, v.keymap.Back), key.Matches(msg, v.keymap.Search):
		v.focusInput = true
		return v, v.input.Focus()
	}
	return v, nil
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Company Listings"), "", v.input.View(), "")

	if v.errMessage != "" {
		sections = append(sections, v.styles.Error.Render(v.errMessage), "")
	}

	sections = append(sections, v.list.View())

	if v.showHelp {
		sections = append(sections, "", v.help.View(v.keymap))
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
	v.help.Width = width
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the query of the current sync.
func (v *View) Query() string {
	return v.query
}

// Listings returns the listings on screen.
func (v *View) Listings() []domain.CompanyListing {
	return v.list.Listings()
}

// SelectedListing returns the highlighted listing.
func (v *View) SelectedListing() *domain.CompanyListing {
	return v.list.SelectedListing()
}

// Loading reports whether a sync is in progress.
func (v *View) Loading() bool {
	return v.loading
}

// ErrMessage returns the error line shown for the last sync.
func (v *View) ErrMessage() string {
	return v.errMessage
}

// Err returns the cause of the last error, if any.
func (v *View) Err() error {
	return v.err
}

// Generation returns the number of the current sync.
func (v *View) Generation() int {
	return v.generation
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// SetInput sets the text in the search box.
func (v *View) SetInput(value string) {
	v.input.SetValue(value)
}
