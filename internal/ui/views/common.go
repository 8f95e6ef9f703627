package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/tplan/internal/store"
	"github.com/tgienger/tplan/internal/ui/styles"
)

// Kind names a top-level view.
type Kind string

const (
	KindActive   Kind = "active"
	KindFinished Kind = "finished"
)

// SwitchView asks the app to show another view.
type SwitchView struct {
	To Kind
}

// Refresh tells the current view that the store's filtered view changed.
type Refresh struct{}

// errMsg carries a failed store operation back into Update.
type errMsg struct{ err error }

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// columnWidths sizes each data column to its widest cell, header included.
func columnWidths(p *store.Projection, rows []store.Row) []int {
	widths := make([]int, p.FieldCount())
	for c := range widths {
		widths[c] = lipgloss.Width(p.HeaderLabelAt(c))
	}
	for _, r := range rows {
		for c := range widths {
			widths[c] = max(widths[c], lipgloss.Width(r.Cells[c]))
		}
	}
	return widths
}

// renderHeader renders the projection's header labels.
func renderHeader(s *styles.Styles, p *store.Projection, widths []int) string {
	cells := make([]string, len(widths))
	for c, w := range widths {
		cells[c] = s.TableHeader.Width(w + 2).Render(p.HeaderLabelAt(c))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// renderRow renders the data cells of r tinted by its state.
func renderRow(s *styles.Styles, r store.Row, widths []int, selected bool) string {
	cell := s.StateCell(r.State, selected)
	parts := make([]string, len(widths))
	for c, w := range widths {
		parts[c] = cell.Width(w + 2).Render(r.Cells[c])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// actionHelp lists the projection's action columns with their keys.
func actionHelp(s *styles.Styles, p *store.Projection, keyFor map[string]string) []string {
	var out []string
	for c := p.FieldCount(); c < p.ColumnCount(); c++ {
		action, _ := p.ActionAt(c)
		out = append(out, s.HelpKey.Render(keyFor[action])+" "+strings.ToLower(action))
	}
	return out
}
