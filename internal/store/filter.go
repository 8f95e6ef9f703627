package store

import "github.com/tgienger/tplan/internal/models"

// Predicate selects tasks for the filtered view.
type Predicate func(id int64, t *models.Task) bool

// Active selects tasks that are not stopped.
func Active(_ int64, t *models.Task) bool {
	return t.State() != models.StateStop
}

// Finished selects stopped tasks.
func Finished(_ int64, t *models.Task) bool {
	return t.State() == models.StateStop
}

// FinishedBetween selects stopped tasks whose end time lies in [start, end].
func FinishedBetween(start, end int64) Predicate {
	return func(_ int64, t *models.Task) bool {
		if t.State() != models.StateStop {
			return false
		}
		at, ok := t.DateEnd()
		return ok && start <= at && at <= end
	}
}
