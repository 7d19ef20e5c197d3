package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"attrfilter/domain"
)

// styles contains the style definitions for the report
type styles struct {
	Title    lipgloss.Style
	Section  lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
	Status   lipgloss.Style
	Filter   lipgloss.Style
}

func newStyles() *styles {
	return &styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Section:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Dim:      lipgloss.NewStyle().Faint(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Filter: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1),
	}
}

// report is what the CLI prints after the loader settled
type report struct {
	Attribute  string
	Search     string
	Items      []domain.AttributeElement
	Mode       domain.ElementsMode
	Selection  domain.Selection
	Total      int
	WithSearch int
	Filter     domain.AttributeFilter
}

func (s *styles) render(r report) (string, error) {
	var b strings.Builder

	b.WriteString(s.Title.Render(r.Attribute))
	b.WriteString("\n")

	header := "Elements"
	if r.Search != "" {
		header = fmt.Sprintf("Elements matching %q", r.Search)
	}
	b.WriteString(s.Section.Render(header))
	b.WriteString("\n")

	if len(r.Items) == 0 {
		b.WriteString(s.Dim.Render("  (none)"))
		b.WriteString("\n")
	}
	for _, item := range r.Items {
		if isSelected(r.Selection, item.Key(r.Mode)) {
			b.WriteString(s.Selected.Render("  [x] " + item.Title))
		} else {
			b.WriteString("  [ ] " + item.Title)
		}
		b.WriteString("\n")
	}

	b.WriteString(s.Status.Render(fmt.Sprintf("%d of %d elements shown, %d match the current settings",
		len(r.Items), r.Total, r.WithSearch)))
	b.WriteString("\n")

	data, err := json.MarshalIndent(r.Filter, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal filter: %w", err)
	}
	b.WriteString(s.Filter.Render(string(data)))
	b.WriteString("\n")

	return b.String(), nil
}

func isSelected(sel domain.Selection, key string) bool {
	return slices.Contains(sel.Items, key) != sel.IsInverted
}
