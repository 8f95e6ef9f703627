package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/store"
	"github.com/tgienger/tplan/internal/ui/keys"
	"github.com/tgienger/tplan/internal/ui/styles"
)

// Row actions.
const (
	ActionStart  = "Start"
	ActionPause  = "Pause"
	ActionFinish = "Finish"
	ActionDelete = "Delete"
)

// ActiveView shows tasks that are not finished and drives their timers.
type ActiveView struct {
	store  *store.Store
	proj   *store.Projection
	rows   []store.Row
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	cursor  int
	scrollY int

	// New task input
	adding  bool
	newName textinput.Model

	err error

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

// NewActiveView creates the active tasks view.
func NewActiveView(s *store.Store) (*ActiveView, error) {
	proj, err := store.NewProjection(s, models.ActiveMapping(), ActionStart, ActionPause, ActionFinish)
	if err != nil {
		return nil, err
	}

	newName := textinput.New()
	newName.Placeholder = "Task name"
	newName.CharLimit = 200

	return &ActiveView{
		store:   s,
		proj:    proj,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
		newName: newName,
	}, nil
}

// Activate switches the store to active tasks and reloads the rows.
func (v *ActiveView) Activate() {
	v.store.ViewActive()
	v.reload()
}

func (v *ActiveView) reload() {
	v.rows = v.proj.Rows()
	if v.cursor >= len(v.rows) {
		v.cursor = max(0, len(v.rows)-1)
	}
	v.ensureVisible()
}

// Init initializes the view
func (v *ActiveView) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (v *ActiveView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.newName.Width = clamp(styles.ContentWidth(v.width)-10, 20, 50)
		v.ensureVisible()
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
		if v.adding {
			return v.updateAdding(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *ActiveView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.err = nil

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Tab):
		return v, func() tea.Msg { return SwitchView{To: KindFinished} }

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.rows)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.adding = true
		v.newName.Reset()
		v.newName.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Start):
		return v.act((*models.Task).Start)

	case key.Matches(msg, v.keys.Pause):
		return v.act((*models.Task).Pause)

	case key.Matches(msg, v.keys.Finish):
		return v.act((*models.Task).Stop)

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil
	}
	return v, nil
}

// act runs op on the selected task. The store signals the resulting
// change; reloading here just avoids waiting for it.
func (v *ActiveView) act(op func(*models.Task) error) (tea.Model, tea.Cmd) {
	if len(v.rows) == 0 {
		return v, nil
	}
	task, err := v.store.GetByID(v.rows[v.cursor].ID)
	if err == nil {
		err = op(task)
	}
	if err != nil {
		return v, func() tea.Msg { return errMsg{err} }
	}
	v.reload()
	return v, nil
}

func (v *ActiveView) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.adding = false
		v.newName.Blur()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		name := strings.TrimSpace(v.newName.Value())
		if name == "" {
			return v, nil
		}
		v.adding = false
		v.newName.Blur()
		if _, err := v.store.AddTask(name); err != nil {
			v.err = err
			return v, nil
		}
		v.reload()
		v.cursor = max(0, len(v.rows)-1)
		v.ensureVisible()
		return v, nil
	}

	var cmd tea.Cmd
	v.newName, cmd = v.newName.Update(msg)
	return v, cmd
}

func (v *ActiveView) visibleRows() int {
	return max(v.height-10, 1)
}

func (v *ActiveView) ensureVisible() {
	visible := v.visibleRows()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

// Selected returns the id of the highlighted task.
func (v *ActiveView) Selected() (int64, bool) {
	if len(v.rows) == 0 {
		return 0, false
	}
	return v.rows[v.cursor].ID, true
}

// View renders the view
func (v *ActiveView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.adding {
		return v.renderAddForm()
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Current tasks"))
	b.WriteString("\n\n")
	b.WriteString(v.renderTable())
	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render(v.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *ActiveView) renderTable() string {
	if len(v.rows) == 0 {
		return v.styles.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	widths := columnWidths(v.proj, v.rows)
	lines := []string{renderHeader(v.styles, v.proj, widths)}
	end := min(v.scrollY+v.visibleRows(), len(v.rows))
	for i := v.scrollY; i < end; i++ {
		lines = append(lines, renderRow(v.styles, v.rows[i], widths, i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

var activeActionKeys = map[string]string{
	ActionStart:  "s",
	ActionPause:  "p",
	ActionFinish: "f",
}

func (v *ActiveView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	items := append(actionHelp(v.styles, v.proj, activeActionKeys),
		v.styles.HelpKey.Render("n")+" new",
		v.styles.HelpKey.Render("tab")+" finished",
		v.styles.HelpKey.Render("q")+" quit",
	)
	return v.styles.Help.Render(strings.Join(items, " • "))
}

func (v *ActiveView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↑/↓") + "    select task",
		s.HelpKey.Render("s") + "      start task",
		s.HelpKey.Render("p") + "      pause task",
		s.HelpKey.Render("f") + "      finish task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("tab") + "    finished tasks",
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

func (v *ActiveView) renderAddForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("New Task"),
		"",
		"Name:",
		s.InputFocused.Width(inputWidth).Render(v.newName.View()),
		"",
		s.TitleMuted.Render("Enter: add • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
