// Package prettyprint renders route tables and banners for the
// hostctl CLI's inspect command, following aretw0-trellis's own
// glamour/termenv terminal presentation layer.
package prettyprint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/chronicals/sdk/pkg/domain"
)

// NewRenderer returns a function rendering Markdown to ANSI, matching
// the teacher's NewRenderer shape (auto light/dark detection).
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// RouteTableMarkdown renders table as a Markdown document: one section
// per route kind, one row per route.
func RouteTableMarkdown(table *domain.Table) string {
	var actions, pages []*domain.Route
	for _, r := range table.Routes {
		switch r.Kind {
		case domain.RouteKindAction:
			actions = append(actions, r)
		case domain.RouteKindPage:
			pages = append(pages, r)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].Slug < actions[j].Slug })
	sort.Slice(pages, func(i, j int) bool { return pages[i].Slug < pages[j].Slug })

	var b strings.Builder
	fmt.Fprintf(&b, "# Declared routes\n\n")
	b.WriteString("## Actions\n\n| slug | group | description |\n|---|---|---|\n")
	for _, r := range actions {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", r.Slug, r.GroupSlug, r.Description)
	}
	b.WriteString("\n## Pages\n\n| slug | has handler | description |\n|---|---|---|\n")
	for _, r := range pages {
		fmt.Fprintf(&b, "| %s | %t | %s |\n", r.Slug, r.Handler != nil, r.Description)
	}
	return b.String()
}

// PrintBanner outputs the hostctl startup banner, styled the way
// trellis's own PrintBanner uses termenv's color profile.
func PrintBanner() {
	p := termenv.ColorProfile()
	lines := []string{
		"  _               _           _ _",
		" | |__   ___  ___| |_ ___  __| | | __",
		" | '_ \\ / _ \\/ __| __/ __|/ _` | |/ /",
		" | | | | (_) \\__ \\ |_\\__ \\ (_| |   <",
		" |_| |_|\\___/|___/\\__|___/\\__,_|_|\\_\\",
	}
	colors := []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

	fmt.Println()
	for i, line := range lines {
		fmt.Println(termenv.String(line).Foreground(p.Color(colors[i%len(colors)])))
	}
	fmt.Println()
}
