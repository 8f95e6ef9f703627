package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tgienger/tplan/internal/orm"
)

// Column names of the task table.
const (
	ColID        = "id"
	ColName      = "Name"
	ColDateStart = "DateStart"
	ColDateEnd   = "DateEnd"
	ColState     = "State"
	ColWorkTime  = "WorkTime"
)

// DateLayout is how timestamps are shown.
const DateLayout = "02-01-2006 15:04:05"

// FormatDate renders epoch seconds in local time. Missing values render empty.
func FormatDate(v any) string {
	n, ok := orm.AsInt64(v)
	if !ok {
		return ""
	}
	return time.Unix(n, 0).Local().Format(DateLayout)
}

// DayLayout is how a calendar day is typed in date filters.
const DayLayout = "02-01-2006"

// ParseDayRange turns two days in DayLayout into the closed range of epoch
// seconds from the first second of from to the last second of to, in loc.
func ParseDayRange(from, to string, loc *time.Location) (int64, int64, error) {
	start, err := time.ParseInLocation(DayLayout, strings.TrimSpace(from), loc)
	if err != nil {
		return 0, 0, errors.Wrap(err, "start date")
	}
	end, err := time.ParseInLocation(DayLayout, strings.TrimSpace(to), loc)
	if err != nil {
		return 0, 0, errors.Wrap(err, "end date")
	}
	last := end.AddDate(0, 0, 1).Unix() - 1
	if last < start.Unix() {
		return 0, 0, errors.Errorf("end date %s is before start date %s", to, from)
	}
	return start.Unix(), last, nil
}

// FormatWorkTime renders seconds as h:mm:ss, e.g. 5400 -> 1:30:00.
func FormatWorkTime(v any) string {
	n, _ := orm.AsInt64(v)
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", n/3600, n/60%60, n%60)
}

func idField(c orm.Constraint) orm.Field[*Task] {
	return orm.Field[*Task]{
		Column:   orm.Column{Name: ColID, Type: orm.Integer, Constraints: c},
		Property: PropID,
		Access:   orm.ReadWrite,
		Get:      func(t *Task) any { return t.ID() },
		Set: func(t *Task, v any) error {
			id, ok := orm.AsInt64(v)
			if !ok {
				return errors.Errorf("id %v is not an integer", v)
			}
			t.SetID(id)
			return nil
		},
	}
}

func nameField() orm.Field[*Task] {
	return orm.Field[*Task]{
		Column:     orm.Column{Name: ColName, Type: orm.Text},
		Property:   PropName,
		Access:     orm.ConstructOnly,
		Visibility: orm.Shown,
		Label:      "Task Name",
		Get:        func(t *Task) any { return t.Name() },
	}
}

func dateStartField() orm.Field[*Task] {
	return orm.Field[*Task]{
		Column:     orm.Column{Name: ColDateStart, Type: orm.Integer},
		Property:   PropDateStart,
		Access:     orm.ConstructOnly,
		Visibility: orm.Shown,
		Label:      "Date Add",
		Format:     FormatDate,
		Get:        func(t *Task) any { return t.DateStart() },
	}
}

func dateEndField(vis orm.Visibility, label string) orm.Field[*Task] {
	return orm.Field[*Task]{
		Column:     orm.Column{Name: ColDateEnd, Type: orm.Integer},
		Property:   PropDateEnd,
		Access:     orm.ReadWrite,
		Visibility: vis,
		Label:      label,
		Format:     FormatDate,
		Get: func(t *Task) any {
			if end, ok := t.DateEnd(); ok {
				return end
			}
			return nil
		},
		Set: func(t *Task, v any) error {
			if v == nil {
				return nil
			}
			end, ok := orm.AsInt64(v)
			if !ok {
				return errors.Errorf("end date %v is not an integer", v)
			}
			t.SetDateEnd(end)
			return nil
		},
	}
}

func stateField(access orm.Access, vis orm.Visibility, label string) orm.Field[*Task] {
	f := orm.Field[*Task]{
		Column:     orm.Column{Name: ColState, Type: orm.Text},
		Property:   PropState,
		Access:     access,
		Visibility: vis,
		Label:      label,
		Get:        func(t *Task) any { return string(t.State()) },
	}
	if access&orm.WriteOnly != 0 {
		f.Set = func(t *Task, v any) error {
			s, _ := orm.AsString(v)
			t.SetState(State(s))
			return nil
		}
	}
	return f
}

func workTimeField() orm.Field[*Task] {
	return orm.Field[*Task]{
		Column:     orm.Column{Name: ColWorkTime, Type: orm.Integer},
		Property:   PropWorkTime,
		Access:     orm.ConstructOnly,
		Visibility: orm.Shown,
		Label:      "Work Time",
		Format:     FormatWorkTime,
		Get:        func(t *Task) any { return t.WorkTime() },
	}
}

// ActiveMapping is the mapping set the store persists through. It shows
// the columns relevant while tasks are being worked on.
func ActiveMapping() *orm.Mapping[*Task] {
	return orm.MustMapping(
		idField(orm.PrimaryKey|orm.AutoIncrement|orm.NotNull),
		nameField(),
		dateStartField(),
		dateEndField(orm.Hidden, ""),
		stateField(orm.ReadWrite, orm.Shown, "Task State"),
		workTimeField(),
	)
}

// FinishedMapping projects finished tasks: the end date is shown, the state
// is read-only and hidden.
func FinishedMapping() *orm.Mapping[*Task] {
	return orm.MustMapping(
		idField(orm.PrimaryKey|orm.AutoIncrement),
		nameField(),
		dateStartField(),
		dateEndField(orm.Shown, "Date End"),
		stateField(orm.ReadOnly, orm.Hidden, ""),
		workTimeField(),
	)
}
