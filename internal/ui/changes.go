package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/tplan/internal/ui/views"
)

// changes turns store signals into a single pending Refresh. Signals arrive
// from timer goroutines, so they never block; a burst collapses into one
// refresh.
type changes struct {
	ch chan struct{}
}

func newChanges() *changes {
	return &changes{ch: make(chan struct{}, 1)}
}

func (c *changes) DataChanged()   { c.signal() }
func (c *changes) LayoutChanged() { c.signal() }

func (c *changes) signal() {
	select {
	case c.ch <- struct{}{}:
	default:
	}
}

// wait blocks until the next signal.
func (c *changes) wait() tea.Msg {
	<-c.ch
	return views.Refresh{}
}
