package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/tplan/internal/logging"
	"github.com/tgienger/tplan/internal/store"
	"github.com/tgienger/tplan/internal/ui/views"
)

// lastViewKey is the settings key remembering the view shown at exit.
const lastViewKey = "last_view"

// Settings persists UI preferences.
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

type App struct {
	store       *store.Store
	settings    Settings
	changes     *changes
	unsubscribe func()

	currentView views.Kind
	active      *views.ActiveView
	finished    *views.FinishedView
	width       int
	height      int
}

// Creates a new application
func NewApp(s *store.Store, settings Settings) (*App, error) {
	active, err := views.NewActiveView(s)
	if err != nil {
		return nil, err
	}
	finished, err := views.NewFinishedView(s)
	if err != nil {
		return nil, err
	}
	c := newChanges()
	return &App{
		store:       s,
		settings:    settings,
		changes:     c,
		unsubscribe: s.Subscribe(c),
		currentView: views.KindActive,
		active:      active,
		finished:    finished,
	}, nil
}

// Close detaches the app from the store.
func (a *App) Close() {
	a.unsubscribe()
}

func (a *App) Init() tea.Cmd {
	// Reopen the view shown last time
	kind := views.KindActive
	if last, err := a.settings.GetSetting(lastViewKey); err == nil && views.Kind(last) == views.KindFinished {
		kind = views.KindFinished
	}
	a.show(kind)
	return a.changes.wait
}

func (a *App) show(kind views.Kind) {
	a.currentView = kind
	switch kind {
	case views.KindFinished:
		a.finished.Activate()
	default:
		a.active.Activate()
	}
	if err := a.settings.SetSetting(lastViewKey, string(kind)); err != nil {
		logging.Log.WithError(err).Warn("save last view")
	}
}

// CurrentView returns the view being shown.
func (a *App) CurrentView() views.Kind { return a.currentView }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Both views keep their size across switches
		a.active.Update(msg)
		a.finished.Update(msg)
		return a, nil

	case views.SwitchView:
		a.show(msg.To)
		return a, nil

	case views.Refresh:
		_, cmd := a.current().Update(msg)
		return a, tea.Batch(cmd, a.changes.wait)
	}

	_, cmd := a.current().Update(msg)
	return a, cmd
}

func (a *App) current() tea.Model {
	if a.currentView == views.KindFinished {
		return a.finished
	}
	return a.active
}

func (a *App) View() string {
	return a.current().View()
}
