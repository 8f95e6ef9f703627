package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/store"
)

func newAddCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME...",
		Short: "Add a paused task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.store.AddTask(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %d: %s\n", t.ID(), t.Name())
			return nil
		},
	}
}

func newListCmd(s *session) *cobra.Command {
	var (
		finished bool
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks, or finished ones with --finished",
		Long: `List prints the active tasks. With --finished it prints finished tasks
instead; --from and --to (DD-MM-YYYY) keep those that ended within the range,
both days included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping := models.ActiveMapping()
			switch {
			case from != "" || to != "":
				if from == "" {
					from = to
				}
				if to == "" {
					to = from
				}
				start, end, err := models.ParseDayRange(from, to, time.Local)
				if err != nil {
					return err
				}
				s.store.ViewFinishedBetween(start, end)
				mapping = models.FinishedMapping()
			case finished:
				s.store.ViewFinished()
				mapping = models.FinishedMapping()
			default:
				s.store.ViewActive()
			}

			proj, err := store.NewProjection(s.store, mapping)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			header := table.Row{"ID"}
			for c := 0; c < proj.FieldCount(); c++ {
				header = append(header, proj.HeaderLabelAt(c))
			}
			tw.AppendHeader(header)
			rows := proj.Rows()
			for _, r := range rows {
				row := table.Row{r.ID}
				for _, cell := range r.Cells {
					row = append(row, cell)
				}
				tw.AppendRow(row)
			}
			tw.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks", len(rows))})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&finished, "finished", false, "list finished tasks")
	cmd.Flags().StringVar(&from, "from", "", "first end day, DD-MM-YYYY (implies --finished)")
	cmd.Flags().StringVar(&to, "to", "", "last end day, DD-MM-YYYY (implies --finished)")
	return cmd
}

func newTrackCmd(s *session) *cobra.Command {
	var limit time.Duration
	cmd := &cobra.Command{
		Use:   "track ID",
		Short: "Run a task's timer until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.task(args[0])
			if err != nil {
				return err
			}
			if t.State() == models.StateStop {
				return errors.Errorf("task %d is finished", t.ID())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if limit > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, limit)
				defer cancel()
			}

			if err := t.Start(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking %q, interrupt to pause\n", t.Name())
			<-ctx.Done()

			if err := t.Pause(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paused %q at %s\n", t.Name(), models.FormatWorkTime(t.WorkTime()))
			return nil
		},
	}
	cmd.Flags().DurationVar(&limit, "for", 0, "pause automatically after this long")
	return cmd
}

func newFinishCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "finish ID",
		Short: "Mark a task finished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.task(args[0])
			if err != nil {
				return err
			}
			if err := t.Stop(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Finished task %d after %s\n", t.ID(), models.FormatWorkTime(t.WorkTime()))
			return nil
		},
	}
}

func newDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.task(args[0])
			if err != nil {
				return err
			}
			if err := s.store.DeleteTask(t.ID()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", t.ID())
			return nil
		},
	}
}

// task resolves a task id argument.
func (s *session) task(arg string) (*models.Task, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, errors.Errorf("invalid task id %q", arg)
	}
	return s.store.GetByID(id)
}
