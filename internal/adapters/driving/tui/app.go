package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	searchView *search.View

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		searchView: search.NewView(s, nil, ports.Listings),
	}, nil
}

// WithContext sets the context every sync started by the app derives from.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	return a
}

// Init implements tea.Model. It shows the cached listings straight away.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("listings"),
		a.searchView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			a.searchView.Close()
			return a, tea.Quit
		}

	case messages.Quit:
		a.searchView.Close()
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.searchView, cmd = a.searchView.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	return a.searchView.View()
}

// Run starts the program on the terminal's alternate screen.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	a.searchView.Close()
	if err != nil && a.ctx.Err() != nil {
		// Interrupted from outside, not a failure.
		return nil
	}
	return err
}

// Listings returns the listings on screen.
func (a *App) Listings() []domain.CompanyListing {
	return a.searchView.Listings()
}

// Query returns the query of the current sync.
func (a *App) Query() string {
	return a.searchView.Query()
}

// ErrMessage returns the error line of the last sync.
func (a *App) ErrMessage() string {
	return a.searchView.ErrMessage()
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.searchView.SetDimensions(width, height)
}
