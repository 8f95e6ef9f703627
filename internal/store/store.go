// Package store keeps the in-memory task collection, its backing table and
// the filtered view consistent. Every change a task reports goes through
// Store.Notify.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tgienger/tplan/internal/db"
	"github.com/tgienger/tplan/internal/logging"
	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/orm"
)

// Store errors.
var (
	ErrNotFound  = errors.New("task not found")
	ErrEmptyName = errors.New("task name is empty")
)

// Listener is told when the filtered view changes. DataChanged follows a
// mutation of the data; LayoutChanged follows a filter switch. Both are
// called without any store lock held.
type Listener interface {
	DataChanged()
	LayoutChanged()
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock for new tasks and their ticks.
func WithClock(c models.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithTick sets the tick interval of every task the store owns.
func WithTick(d time.Duration) Option {
	return func(s *Store) { s.tick = d }
}

// WithInitialFilter sets the filter applied after load. Nil means no filter.
func WithInitialFilter(p Predicate) Option {
	return func(s *Store) { s.filter = p }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store owns every persisted task.
type Store struct {
	mu       sync.Mutex
	table    *db.Table
	mapping  *orm.Mapping[*models.Task]
	tasks    map[int64]*models.Task
	order    []int64
	filter   Predicate
	filtered []int64

	clock models.Clock
	tick  time.Duration
	log   logrus.FieldLogger

	lmu       sync.Mutex
	listeners map[int]Listener
	nextSub   int
}

// New creates the table if needed and loads every row. Tasks persisted as
// running, or never started, are paused; the pause is written back through
// Notify. The initial filter defaults to Active.
func New(table *db.Table, mapping *orm.Mapping[*models.Task], opts ...Option) (*Store, error) {
	if table == nil || mapping == nil {
		return nil, errors.Wrap(orm.ErrConfiguration, "store needs a table and a mapping")
	}
	s := &Store{
		table:     table,
		mapping:   mapping,
		tasks:     make(map[int64]*models.Task),
		filter:    Active,
		clock:     models.SystemClock,
		tick:      models.DefaultTick,
		log:       logging.Log,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("table", table.Name())

	if err := table.EnsureSchema(mapping.Columns()); err != nil {
		return nil, err
	}
	stale, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, t := range stale {
		s.log.WithFields(logrus.Fields{"task": t.ID(), "state": t.State()}).Warn("pausing task left running")
		if err := t.Pause(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() ([]*models.Task, error) {
	rows, err := s.table.QueryAll(db.Condition{}, s.mapping.ColumnNames())
	if err != nil {
		return nil, errors.Wrap(err, "load tasks")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*models.Task
	for _, row := range rows {
		t, err := s.mapping.Build(row.Get, s.construct)
		if err != nil {
			return nil, errors.Wrap(err, "rebuild task")
		}
		id := t.ID()
		if id < 0 {
			s.log.WithField("row", row).Warn("skipping row without id")
			continue
		}
		s.tasks[id] = t
		s.order = append(s.order, id)
		if st := t.State(); st == models.StateRun || st == models.StateNone {
			stale = append(stale, t)
		}
	}
	s.refreshLocked()
	s.log.WithField("count", len(s.order)).Info("loaded tasks")
	return stale, nil
}

func (s *Store) construct(a orm.Args) (*models.Task, error) {
	return s.newTask(a.String(models.PropName), a.Int64(models.PropDateStart), a.Int64(models.PropWorkTime)), nil
}

func (s *Store) newTask(name string, start, workTime int64) *models.Task {
	return models.NewTask(name, start, workTime, s, models.WithClock(s.clock), models.WithTick(s.tick))
}

// Mapping returns the mapping set the store persists through.
func (s *Store) Mapping() *orm.Mapping[*models.Task] { return s.mapping }

// AddTask persists a new task started now with no work time.
func (s *Store) AddTask(name string) (*models.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	t := s.newTask(name, models.Unix(s.clock), 0)
	t.SetState(models.StateNone)

	s.mu.Lock()
	cols, vals := s.mapping.Values(t, true)
	id, err := s.table.Insert(cols, vals)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.Wrapf(err, "add task %q", name)
	}
	t.SetID(id)
	s.tasks[id] = t
	s.order = append(s.order, id)
	s.refreshLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"task": id, "name": name}).Info("added task")
	s.dataChanged()
	return t, nil
}

// DeleteTask removes the task's row and drops it from memory. A running
// task is paused first so its timer dies with it; deleting an unknown id
// only touches the table.
func (s *Store) DeleteTask(id int64) error {
	s.mu.Lock()
	if err := s.table.DeleteByID(s.mapping.PrimaryKey().Name, id); err != nil {
		s.mu.Unlock()
		return errors.Wrapf(err, "delete task %d", id)
	}
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
		s.order = remove(s.order, id)
	}
	s.refreshLocked()
	s.mu.Unlock()

	if ok {
		// No longer owned, so the pause is not persisted.
		_ = t.Pause()
		s.log.WithField("task", id).Info("deleted task")
	}
	s.dataChanged()
	return nil
}

func remove(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// GetByID returns the task with the given id.
func (s *Store) GetByID(id int64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return t, nil
}

// GetByFilteredIndex returns the n-th task of the filtered view.
func (s *Store) GetByFilteredIndex(n int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.filtered) {
		return nil, errors.Wrapf(ErrNotFound, "index %d of %d", n, len(s.filtered))
	}
	return s.tasks[s.filtered[n]], nil
}

// Count returns the size of the filtered view.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filtered)
}

// Filtered returns the filtered view in order.
func (s *Store) Filtered() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Task, len(s.filtered))
	for i, id := range s.filtered {
		out[i] = s.tasks[id]
	}
	return out
}

// All returns every task in load/insert order.
func (s *Store) All() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Task, len(s.order))
	for i, id := range s.order {
		out[i] = s.tasks[id]
	}
	return out
}

// ApplyFilter replaces the filter and recomputes the view. A nil predicate
// clears it.
func (s *Store) ApplyFilter(p Predicate) {
	s.mu.Lock()
	s.filter = p
	s.refreshLocked()
	s.mu.Unlock()
	s.layoutChanged()
}

// ClearFilter makes the view equal to the whole collection.
func (s *Store) ClearFilter() { s.ApplyFilter(nil) }

// ViewActive shows tasks that are not stopped.
func (s *Store) ViewActive() { s.ApplyFilter(Active) }

// ViewFinished shows stopped tasks.
func (s *Store) ViewFinished() { s.ApplyFilter(Finished) }

// ViewFinishedBetween shows tasks stopped within [start, end], in epoch
// seconds.
func (s *Store) ViewFinishedBetween(start, end int64) {
	s.ApplyFilter(FinishedBetween(start, end))
}

// refreshLocked recomputes the filtered view in canonical order.
func (s *Store) refreshLocked() {
	s.filtered = s.filtered[:0]
	for _, id := range s.order {
		if s.filter == nil || s.filter(id, s.tasks[id]) {
			s.filtered = append(s.filtered, id)
		}
	}
}

// Notify persists the reported properties of an owned task with one update
// keyed by its id. Properties without a readable column are ignored, as are
// tasks the store does not own. Tick callbacks arrive here from timer
// goroutines.
func (s *Store) Notify(t *models.Task, properties []string) error {
	s.mu.Lock()
	id := t.ID()
	if owned, ok := s.tasks[id]; !ok || owned != t {
		s.mu.Unlock()
		return nil
	}

	key := s.mapping.PrimaryKey()
	values := make(map[string]any, len(properties))
	for _, p := range properties {
		f, ok := s.mapping.ByProperty(p)
		if !ok || !f.Readable() || f.Name == key.Name {
			continue
		}
		values[f.Name] = f.Get(t)
	}
	if len(values) == 0 {
		s.mu.Unlock()
		return nil
	}

	if err := s.table.Update(values, db.Eq(key.Name, key.Get(t))); err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("task", id).Error("persist task")
		return errors.Wrapf(err, "persist task %d", id)
	}
	s.refreshLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"task": id, "properties": properties}).Debug("persisted task")
	s.dataChanged()
	return nil
}

// Subscribe registers l and returns a func that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) snapshotListeners() []Listener {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func (s *Store) dataChanged() {
	for _, l := range s.snapshotListeners() {
		l.DataChanged()
	}
}

func (s *Store) layoutChanged() {
	for _, l := range s.snapshotListeners() {
		l.LayoutChanged()
	}
}

// Close pauses every running task so no timer outlives the store. It
// returns the first persistence error.
func (s *Store) Close() error {
	var running []*models.Task
	for _, t := range s.All() {
		if t.State() == models.StateRun {
			running = append(running, t)
		}
	}
	var first error
	for _, t := range running {
		if err := t.Pause(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
