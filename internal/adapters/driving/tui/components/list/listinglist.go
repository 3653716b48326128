// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

const (
	symbolWidth   = 8
	exchangeWidth = 10
)

// ListingList displays company listings in a navigable list.
type ListingList struct {
	listings []domain.CompanyListing
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewListingList creates a new listing list component.
func NewListingList(s *styles.Styles) *ListingList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ListingList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *ListingList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *ListingList) Update(msg tea.Msg) (*ListingList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the visible window of listings.
func (l *ListingList) View() string {
	if len(l.listings) == 0 {
		return l.styles.Muted.Render("No listings")
	}

	visible := l.height - 2
	if visible < 1 {
		visible = 1
	}

	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.listings))

	lines := make([]string, 0, end-start+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Listings (%d)", len(l.listings))), "")
	for i := start; i < end; i++ {
		lines = append(lines, l.renderListing(i, l.listings[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *ListingList) renderListing(index int, listing domain.CompanyListing) string {
	nameWidth := l.width - symbolWidth - exchangeWidth - 6
	if nameWidth < 10 {
		nameWidth = 10
	}
	name := listing.Name
	if len(name) > nameWidth {
		name = name[:nameWidth-3] + "..."
	}

	if index == l.selected {
		return l.styles.Selected.Render(fmt.Sprintf("> %-*s %-*s %s",
			symbolWidth, listing.Symbol, nameWidth, name, listing.Exchange))
	}
	return "  " + l.styles.Title.Render(fmt.Sprintf("%-*s", symbolWidth, listing.Symbol)) + " " +
		l.styles.Normal.Render(fmt.Sprintf("%-*s", nameWidth, name)) + " " +
		l.styles.Muted.Render(listing.Exchange)
}

// SetListings replaces the listings, keeping the selection in range.
func (l *ListingList) SetListings(listings []domain.CompanyListing) {
	l.listings = listings
	if l.selected >= len(listings) {
		l.selected = max(len(listings)-1, 0)
	}
}

// Listings returns the current listings.
func (l *ListingList) Listings() []domain.CompanyListing {
	return l.listings
}

// Selected returns the index of the selected listing.
func (l *ListingList) Selected() int {
	return l.selected
}

// SelectedListing returns the currently selected listing, or nil if none.
func (l *ListingList) SelectedListing() *domain.CompanyListing {
	if l.selected < 0 || l.selected >= len(l.listings) {
		return nil
	}
	return &l.listings[l.selected]
}

// MoveUp moves selection up.
func (l *ListingList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ListingList) MoveDown() {
	if l.selected < len(l.listings)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *ListingList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of listings.
func (l *ListingList) Count() int {
	return len(l.listings)
}
