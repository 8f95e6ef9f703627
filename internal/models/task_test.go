package models_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/models/modeltest"
)

type report struct {
	id    int64
	props []string
}

// recorder is an Observer that keeps every report.
type recorder struct {
	mu      sync.Mutex
	reports []report
	err     error
}

func (r *recorder) Notify(t *models.Task, props []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{id: t.ID(), props: append([]string(nil), props...)})
	return r.err
}

func (r *recorder) count(prop string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rep := range r.reports {
		for _, p := range rep.props {
			if p == prop {
				n++
			}
		}
	}
	return n
}

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTask(t *testing.T) (*models.Task, *recorder, *modeltest.Clock) {
	t.Helper()
	clock := modeltest.NewClock(epoch)
	rec := &recorder{}
	task := models.NewTask("Write spec", epoch.Unix(), 0, rec,
		models.WithClock(clock), models.WithTick(10*time.Second))
	return task, rec, clock
}

func TestNewTaskDefaults(t *testing.T) {
	task, rec, _ := newTask(t)

	assert.Equal(t, models.UnassignedID, task.ID())
	assert.Equal(t, "Write spec", task.Name())
	assert.Equal(t, epoch.Unix(), task.DateStart())
	assert.Equal(t, int64(0), task.WorkTime())
	assert.Equal(t, models.StatePaused, task.State())
	_, ok := task.DateEnd()
	assert.False(t, ok)
	assert.Empty(t, rec.reports)
}

func TestSetIDOnce(t *testing.T) {
	task, _, _ := newTask(t)

	task.SetID(-5)
	assert.Equal(t, models.UnassignedID, task.ID())

	task.SetID(7)
	task.SetID(8)
	assert.Equal(t, int64(7), task.ID())
}

func TestSetDateEnd(t *testing.T) {
	task, _, _ := newTask(t)
	start := task.DateStart()

	task.SetDateEnd(start)
	_, ok := task.DateEnd()
	assert.False(t, ok, "end equal to start is rejected")

	task.SetDateEnd(start - 100)
	_, ok = task.DateEnd()
	assert.False(t, ok, "end before start is rejected")

	task.SetDateEnd(start + 60)
	task.SetDateEnd(start + 120)
	end, ok := task.DateEnd()
	require.True(t, ok)
	assert.Equal(t, start+60, end, "end is settable once")
}

func TestSetStateIgnoresUnknown(t *testing.T) {
	task, _, _ := newTask(t)
	task.SetState("DONE")
	assert.Equal(t, models.StatePaused, task.State())
	task.SetState(models.StateRun)
	assert.Equal(t, models.StateRun, task.State())
}

func TestStartTicks(t *testing.T) {
	task, rec, clock := newTask(t)

	task.Start()
	assert.Equal(t, models.StateRun, task.State())
	assert.Equal(t, int64(10), task.WorkTime())
	assert.Equal(t, 1, rec.count(models.PropState))
	assert.Equal(t, 1, rec.count(models.PropWorkTime))
	assert.Equal(t, 1, clock.Pending())

	require.True(t, clock.Fire())
	require.True(t, clock.Fire())
	assert.Equal(t, int64(30), task.WorkTime())
	assert.Equal(t, 3, rec.count(models.PropWorkTime))
	assert.Equal(t, 1, rec.count(models.PropState), "ticks do not re-report state")
	assert.Equal(t, 1, clock.Pending(), "exactly one tick stays armed")
}

func TestStartWhileRunning(t *testing.T) {
	task, rec, clock := newTask(t)

	task.Start()
	task.Start()
	assert.Equal(t, int64(20), task.WorkTime())
	assert.Equal(t, 1, rec.count(models.PropState))
	assert.Equal(t, 2, rec.count(models.PropWorkTime))
	assert.Equal(t, 1, clock.Pending(), "restart replaces the pending tick")
}

func TestPauseIdempotent(t *testing.T) {
	task, rec, clock := newTask(t)

	task.Start()
	require.True(t, clock.Fire())
	require.True(t, clock.Fire())
	task.Pause()
	task.Pause()

	assert.Equal(t, models.StatePaused, task.State())
	assert.Equal(t, int64(30), task.WorkTime())
	assert.Equal(t, 2, rec.count(models.PropState), "one report for RUN, one for PAUSED")
	assert.Equal(t, 0, clock.Pending())
	assert.False(t, task.Running())
}

func TestPauseCancelsInFlightTick(t *testing.T) {
	task, rec, clock := newTask(t)

	task.Start()
	inFlight := clock.Last()
	task.Pause()

	// A tick that raced with Pause must not count.
	clock.FireStale(inFlight)
	assert.Equal(t, int64(10), task.WorkTime())
	assert.Equal(t, models.StatePaused, task.State())
	assert.Equal(t, 1, rec.count(models.PropWorkTime))
}

func TestStop(t *testing.T) {
	task, rec, clock := newTask(t)

	task.Start()
	inFlight := clock.Last()
	clock.Advance(time.Hour)
	task.Stop()

	assert.Equal(t, models.StateStop, task.State())
	end, ok := task.DateEnd()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Hour).Unix(), end)
	assert.Greater(t, end, task.DateStart())
	assert.Equal(t, 1, rec.count(models.PropDateEnd))

	clock.FireStale(inFlight)
	assert.Equal(t, int64(10), task.WorkTime(), "work time is fixed once stopped")

	// STOP is terminal.
	reports := len(rec.reports)
	task.Start()
	task.Pause()
	task.Stop()
	assert.Equal(t, models.StateStop, task.State())
	assert.Len(t, rec.reports, reports)
	assert.Equal(t, 0, clock.Pending())

	end2, _ := task.DateEnd()
	assert.Equal(t, end, end2)
}

func TestStopSameSecondKeepsEndAfterStart(t *testing.T) {
	task, _, _ := newTask(t)
	task.Stop()

	end, ok := task.DateEnd()
	require.True(t, ok)
	assert.Equal(t, task.DateStart()+1, end)
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{int64(5400), "1:30:00"},
		{int64(0), "0:00:00"},
		{int64(86399), "23:59:59"},
		{int64(90061), "25:01:01"},
		{"3600", "1:00:00"},
		{nil, "0:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.FormatWorkTime(tt.in))
	}

	assert.Equal(t, "", models.FormatDate(nil))
	assert.Equal(t, time.Unix(epoch.Unix(), 0).Local().Format(models.DateLayout), models.FormatDate(epoch.Unix()))
}

func TestObserverErrorsPropagate(t *testing.T) {
	task, rec, _ := newTask(t)
	rec.err = errors.New("disk full")

	assert.EqualError(t, task.Start(), "disk full")
	assert.Equal(t, models.StateRun, task.State(), "the in-memory transition still happens")
	assert.EqualError(t, task.Pause(), "disk full")
	assert.EqualError(t, task.Stop(), "disk full")
	assert.NoError(t, task.Stop(), "a no-op reports nothing")
}
