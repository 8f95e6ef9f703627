package models

import (
	"sync"
	"time"
)

// State is the lifecycle state of a Task
type State string

const (
	// StateNone is what a freshly added task is persisted with.
	StateNone   State = ""
	StatePaused State = "PAUSED"
	StateRun    State = "RUN"
	StateStop   State = "STOP"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateNone, StatePaused, StateRun, StateStop:
		return true
	}
	return false
}

// Property names a Task reports to its Observer.
const (
	PropID        = "taskId"
	PropName      = "taskName"
	PropDateStart = "dateStart"
	PropDateEnd   = "dateEnd"
	PropState     = "state"
	PropWorkTime  = "workTime"
)

// DefaultTick is how often a running task's work time advances.
const DefaultTick = 10 * time.Second

// UnassignedID is the id of a task storage has not persisted yet.
const UnassignedID int64 = -1

// Observer receives the names of properties a Task changed. It is the only
// path from a task to storage.
type Observer interface {
	Notify(t *Task, properties []string) error
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithClock sets the clock used for timestamps and ticks.
func WithClock(c Clock) TaskOption {
	return func(t *Task) { t.clock = c }
}

// WithTick sets the tick interval. Intervals under a second are ignored.
func WithTick(d time.Duration) TaskOption {
	return func(t *Task) {
		if d >= time.Second {
			t.tick = d
		}
	}
}

// Task is one tracked unit of work.
//
// While RUN, a task re-arms a timer every tick and adds the tick to its work
// time. Pause and Stop cancel that timer before changing state; a tick that
// was already in flight sees a stale generation and does nothing.
type Task struct {
	mu sync.Mutex

	id        int64
	name      string
	dateStart int64
	dateEnd   *int64
	workTime  int64
	state     State

	observer Observer
	clock    Clock
	tick     time.Duration
	timer    Timer
	gen      uint64
}

// NewTask creates an unpersisted task. Only the store should call this for
// tasks that take part in persistence.
func NewTask(name string, dateStart, workTime int64, observer Observer, opts ...TaskOption) *Task {
	t := &Task{
		id:        UnassignedID,
		name:      name,
		dateStart: dateStart,
		workTime:  workTime,
		state:     StatePaused,
		observer:  observer,
		clock:     SystemClock,
		tick:      DefaultTick,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.observer == nil {
		t.observer = nopObserver{}
	}
	return t
}

type nopObserver struct{}

func (nopObserver) Notify(*Task, []string) error { return nil }

// ID returns the storage identity, or UnassignedID.
func (t *Task) ID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// DateStart returns the creation time in UTC epoch seconds.
func (t *Task) DateStart() int64 { return t.dateStart }

// DateEnd returns the end time in UTC epoch seconds, if set.
func (t *Task) DateEnd() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dateEnd == nil {
		return 0, false
	}
	return *t.dateEnd, true
}

// WorkTime returns the accumulated work time in seconds.
func (t *Task) WorkTime() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.workTime
}

// State returns the current state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Tick returns the tick interval.
func (t *Task) Tick() time.Duration { return t.tick }

// SetID assigns the storage identity. Only the first assignment of a
// non-negative id takes effect.
func (t *Task) SetID(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id == UnassignedID && id >= 0 {
		t.id = id
	}
}

// SetDateEnd records the end time once. Values not after the start are ignored.
func (t *Task) SetDateEnd(end int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dateEnd == nil && end > t.dateStart {
		t.dateEnd = &end
	}
}

// SetState overwrites the state without side effects. Used when loading.
// Unknown states are ignored.
func (t *Task) SetState(s State) {
	if !s.Valid() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// Start puts the task in RUN and advances its work time by one tick, then
// arms the next tick. Starting a running task advances it again and re-arms
// the timer. Stopped tasks ignore Start.
func (t *Task) Start() error {
	t.mu.Lock()
	if t.state == StateStop {
		t.mu.Unlock()
		return nil
	}
	stateChanged := t.state != StateRun
	t.state = StateRun
	t.advanceLocked()
	t.mu.Unlock()

	if stateChanged {
		if err := t.observer.Notify(t, []string{PropState}); err != nil {
			return err
		}
	}
	return t.observer.Notify(t, []string{PropWorkTime})
}

// onTick runs on the timer goroutine.
func (t *Task) onTick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateRun {
		t.mu.Unlock()
		return
	}
	t.advanceLocked()
	t.mu.Unlock()

	// Nobody is waiting on a tick; the observer logs its own failures.
	_ = t.observer.Notify(t, []string{PropWorkTime})
}

func (t *Task) advanceLocked() {
	t.workTime += int64(t.tick / time.Second)
	t.cancelLocked()
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.tick, func() { t.onTick(gen) })
}

func (t *Task) cancelLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Pause cancels the pending tick and moves the task to PAUSED. It reports
// only when the state actually changed.
func (t *Task) Pause() error {
	t.mu.Lock()
	if t.state == StateStop {
		t.mu.Unlock()
		return nil
	}
	t.cancelLocked()
	changed := t.state != StatePaused
	t.state = StatePaused
	t.mu.Unlock()

	if !changed {
		return nil
	}
	return t.observer.Notify(t, []string{PropState})
}

// Stop cancels the pending tick, moves the task to STOP and records the end
// time as now. A task stopped within the second it started gets start+1
// instead, one second later than the real stop, so its end stays strictly
// after its start and range filters still find it. STOP is terminal.
func (t *Task) Stop() error {
	t.mu.Lock()
	if t.state == StateStop {
		t.mu.Unlock()
		return nil
	}
	t.cancelLocked()
	t.state = StateStop
	end := Unix(t.clock)
	if end <= t.dateStart {
		end = t.dateStart + 1
	}
	t.dateEnd = &end
	t.mu.Unlock()

	return t.observer.Notify(t, []string{PropState, PropDateEnd})
}

// Running reports whether a tick is armed.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
