package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tgienger/tplan/internal/config"
	"github.com/tgienger/tplan/internal/db"
	"github.com/tgienger/tplan/internal/logging"
	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/store"
	"github.com/tgienger/tplan/internal/ui"
)

// session holds what every command but version needs: config, the open
// database and the task store.
type session struct {
	configDir string

	cfg   *config.Config
	conn  *db.DB
	store *store.Store
	logs  io.Closer
}

func newRootCmd() (*cobra.Command, *session) {
	s := &session{}
	root := &cobra.Command{
		Use:           "tplan",
		Short:         "Track the time spent on tasks",
		Long:          "tplan keeps a list of tasks and the time worked on each.\nRun without a command to open the terminal UI.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return s.open()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runTUI()
		},
	}
	root.PersistentFlags().StringVar(&s.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/tplan)")

	root.AddCommand(
		newVersionCmd(),
		newAddCmd(s),
		newListCmd(s),
		newTrackCmd(s),
		newFinishCmd(s),
		newDeleteCmd(s),
	)
	return root, s
}

func (s *session) open() error {
	dir := s.configDir
	if dir == "" {
		d, err := config.DefaultConfigDir()
		if err != nil {
			return err
		}
		dir = d
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	s.cfg = cfg

	logs, err := logging.Setup(cfg.Log.Level, cfg.LogPath())
	if err != nil {
		return err
	}
	s.logs = logs

	conn, err := db.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	s.conn = conn

	table, err := conn.Table(cfg.Table)
	if err != nil {
		return err
	}
	st, err := store.New(table, models.ActiveMapping(),
		store.WithTick(cfg.TickInterval),
		store.WithLogger(logging.Log),
	)
	if err != nil {
		return errors.Wrap(err, "load tasks")
	}
	s.store = st
	return nil
}

// close pauses running tasks and releases the database and log file. It is
// safe to call when open failed part way or never ran.
func (s *session) close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if s.store != nil {
		keep(s.store.Close())
		s.store = nil
	}
	if s.conn != nil {
		keep(s.conn.Close())
		s.conn = nil
	}
	if s.logs != nil {
		keep(s.logs.Close())
		s.logs = nil
	}
	return first
}

func (s *session) runTUI() error {
	app, err := ui.NewApp(s.store, s.conn)
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run application")
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tplan version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tplan %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
