package views

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/store"
	"github.com/tgienger/tplan/internal/ui/keys"
	"github.com/tgienger/tplan/internal/ui/styles"
)

type finishedItem struct {
	row store.Row
}

func (i finishedItem) FilterValue() string { return i.row.Cells[0] }

type finishedDelegate struct {
	styles *styles.Styles
	widths []int
}

func (d *finishedDelegate) Height() int                               { return 1 }
func (d *finishedDelegate) Spacing() int                              { return 0 }
func (d *finishedDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d *finishedDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(finishedItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(d.styles, it.row, d.widths, index == m.Index()))
}

// FinishedView lists stopped tasks, optionally within a range of end dates.
type FinishedView struct {
	store    *store.Store
	proj     *store.Projection
	list     list.Model
	delegate *finishedDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	// End date range filter
	ranging    bool
	from       textinput.Model
	to         textinput.Model
	focusIdx   int // 0=from, 1=to, 2=apply
	rangeLabel string

	err error

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewFinishedView creates the finished tasks view.
func NewFinishedView(s *store.Store) (*FinishedView, error) {
	proj, err := store.NewProjection(s, models.FinishedMapping(), ActionDelete)
	if err != nil {
		return nil, err
	}
	st := styles.NewStyles()

	from := textinput.New()
	from.Placeholder = models.DayLayout
	from.CharLimit = len(models.DayLayout)

	to := textinput.New()
	to.Placeholder = models.DayLayout
	to.CharLimit = len(models.DayLayout)

	delegate := &finishedDelegate{styles: st}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return &FinishedView{
		store:    s,
		proj:     proj,
		list:     l,
		delegate: delegate,
		styles:   st,
		keys:     keys.DefaultKeyMap(),
		from:     from,
		to:       to,
	}, nil
}

// Activate switches the store to all finished tasks and reloads the list.
func (v *FinishedView) Activate() {
	v.rangeLabel = ""
	v.store.ViewFinished()
	v.reload()
}

func (v *FinishedView) reload() {
	rows := v.proj.Rows()
	v.delegate.widths = columnWidths(v.proj, rows)
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = finishedItem{row: r}
	}
	v.list.SetItems(items)
}

// Init initializes the view
func (v *FinishedView) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (v *FinishedView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Use content width (capped at MaxWidth) for internal layout
		contentWidth := styles.ContentWidth(msg.Width)
		v.list.SetSize(contentWidth-4, max(msg.Height-8, 1))
		return v, nil

	case Refresh:
		v.reload()
		return v, nil

	case errMsg:
		v.err = msg.err
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.ranging {
			return v.updateRanging(msg)
		}

		v.err = nil
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.Back):
			return v, func() tea.Msg { return SwitchView{To: KindActive} }
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.All):
			v.Activate()
			return v, nil
		case key.Matches(msg, v.keys.Range):
			today := time.Now().Format(models.DayLayout)
			v.ranging = true
			v.focusIdx = 0
			v.from.SetValue(today)
			v.to.SetValue(today)
			v.updateFocus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(finishedItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.row.ID
				v.deleteTargetName = item.row.Cells[0]
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *FinishedView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		if err := v.store.DeleteTask(v.deleteTargetID); err != nil {
			v.err = err
			return v, nil
		}
		v.reload()
		return v, nil
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *FinishedView) updateRanging(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.ranging = false
		return v, nil

	case msg.String() == "shift+tab":
		v.focusIdx = (v.focusIdx + 2) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % 3
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx < 2 {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v.applyRange()
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.from, cmd = v.from.Update(msg)
	case 1:
		v.to, cmd = v.to.Update(msg)
	}
	return v, cmd
}

func (v *FinishedView) applyRange() (tea.Model, tea.Cmd) {
	start, end, err := models.ParseDayRange(v.from.Value(), v.to.Value(), time.Local)
	if err != nil {
		v.err = err
		return v, nil
	}
	v.ranging = false
	v.err = nil
	v.rangeLabel = strings.TrimSpace(v.from.Value()) + " .. " + strings.TrimSpace(v.to.Value())
	v.store.ViewFinishedBetween(start, end)
	v.reload()
	return v, nil
}

func (v *FinishedView) updateFocus() {
	v.from.Blur()
	v.to.Blur()
	switch v.focusIdx {
	case 0:
		v.from.Focus()
	case 1:
		v.to.Focus()
	}
}

// View renders the view
func (v *FinishedView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.ranging {
		return v.renderRangeForm()
	}

	title := "Finished tasks"
	if v.rangeLabel != "" {
		title += " (" + v.rangeLabel + ")"
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")
	if len(v.list.Items()) == 0 {
		b.WriteString(v.styles.TitleMuted.Render("No finished tasks."))
	} else {
		b.WriteString(renderHeader(v.styles, v.proj, v.delegate.widths))
		b.WriteString("\n")
		b.WriteString(v.list.View())
	}
	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render(v.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *FinishedView) renderRangeForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	fromStyle := s.Input
	toStyle := s.Input
	btnStyle := s.Button

	switch v.focusIdx {
	case 0:
		fromStyle = s.InputFocused
	case 1:
		toStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 12, 20)

	lines := []string{
		s.Title.Render("Filter by end date"),
		"",
		"Date start:",
		fromStyle.Width(inputWidth).Render(v.from.View()),
		"",
		"Date end:",
		toStyle.Width(inputWidth).Render(v.to.View()),
		"",
		btnStyle.Render(" Apply "),
	}
	if v.err != nil {
		lines = append(lines, "", s.Error.Render(v.err.Error()))
	}
	lines = append(lines, "", s.TitleMuted.Render("Tab: next • Enter: apply • Esc: cancel"))

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
	return styles.CenterView(centered, v.width, v.height)
}

var finishedActionKeys = map[string]string{
	ActionDelete: "d",
}

func (v *FinishedView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	items := append(actionHelp(v.styles, v.proj, finishedActionKeys),
		v.styles.HelpKey.Render("r")+" date range",
		v.styles.HelpKey.Render("a")+" all",
		v.styles.HelpKey.Render("tab")+" current",
		v.styles.HelpKey.Render("q")+" quit",
	)
	return v.styles.Help.Render(strings.Join(items, " • "))
}

func (v *FinishedView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("r") + "      filter by end date",
		s.HelpKey.Render("a") + "      all finished tasks",
		s.HelpKey.Render("tab") + "    current tasks",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *FinishedView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q will be removed for good.", v.deleteTargetName)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
