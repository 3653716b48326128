package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/listings-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/services"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

var (
	searchRefresh bool
	searchJSON    bool
)

// errNoSnapshot is returned when a sync produced no listings at all.
var errNoSnapshot = errors.New("no listings available")

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search company listings",
	Long: `Searches cached company listings by name or symbol.

Names match on any part, case-insensitively. Symbols must match exactly,
ignoring case. Without a query every listing is shown.

The cache is filled from the remote source when it is empty. Use --refresh
to fetch fresh data first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchRefresh, "refresh", "r", false, "fetch fresh listings before searching")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireListings(); err != nil {
		return err
	}

	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	res := services.Drain(
		listingService.CompanyListings(commandContext(cmd), searchRefresh, query),
		progressPrinter(cmd.ErrOrStderr()),
	)
	if res.Err != nil {
		logger.Debug("search: %v", res.Err)
	}
	if res.Snapshots == 0 {
		if res.Err != nil {
			return fmt.Errorf("%w: %w", errNoSnapshot, res.Err)
		}
		return errNoSnapshot
	}

	if searchJSON {
		return outputListingsJSON(cmd.OutOrStdout(), res.Listings)
	}
	return outputListingsTable(cmd.OutOrStdout(), res.Listings, query)
}

// progressPrinter reports loading and error events on w.
func progressPrinter(w io.Writer) func(domain.Event) {
	return func(ev domain.Event) {
		switch {
		case ev.IsLoading():
			fmt.Fprintln(w, "Loading...")
		case ev.Kind == domain.EventError:
			fmt.Fprintln(w, ev.Message)
		}
	}
}

func outputListingsJSON(w io.Writer, listings []domain.CompanyListing) error {
	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal listings: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputListingsTable(w io.Writer, listings []domain.CompanyListing, query string) error {
	if len(listings) == 0 {
		_, err := fmt.Fprintf(w, "No listings found for %s.\n", describeQuery(query))
		return err
	}
	return writeListingsTable(w, listings, isTerminal(w))
}

// columnGap separates table columns.
const columnGap = 2

// writeListingsTable pads every cell to its column width before styling so
// escape sequences never count towards alignment.
func writeListingsTable(w io.Writer, listings []domain.CompanyListing, styled bool) error {
	s := styles.DefaultStyles()
	headers := []string{"SYMBOL", "NAME", "EXCHANGE"}
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{l.Symbol, l.Name, l.Exchange})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, render func(string) string) string {
		var b strings.Builder
		for i, cell := range cells {
			b.WriteString(render(cell))
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+columnGap))
			}
		}
		return b.String()
	}
	plain := func(text string) string { return text }
	header := plain
	if styled {
		header = func(text string) string { return s.Title.Render(text) }
	}

	var out strings.Builder
	out.WriteString(line(headers, header) + "\n")
	for _, row := range rows {
		out.WriteString(line(row, plain) + "\n")
	}

	summary := fmt.Sprintf("%d listing%s", len(listings), plural(len(listings)))
	if styled {
		summary = s.Muted.Render(summary)
	}
	out.WriteString("\n" + summary + "\n")

	_, err := io.WriteString(w, out.String())
	return err
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// describeQuery renders a query for messages.
func describeQuery(query string) string {
	if domain.IsBlankQuery(query) {
		return "all listings"
	}
	return fmt.Sprintf("%q", strings.TrimSpace(query))
}
