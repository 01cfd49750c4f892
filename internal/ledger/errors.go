package ledger

import (
	"fmt"
	"time"

	"weekplan/internal/model"
)

// ConflictError is returned when a placement would overlap placed items.
// The ledger is left unchanged.
type ConflictError struct {
	ID        string
	Conflicts []model.Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ledger: %s conflicts with %d existing item(s)", e.ID, len(e.Conflicts))
}

// NotATaskError is returned when a task operation targets a missing id or
// an event.
type NotATaskError struct {
	ID string
}

func (e *NotATaskError) Error() string {
	return fmt.Sprintf("ledger: %q is not a task", e.ID)
}

// NotAnEventError is returned when an event operation targets a missing id
// or a task.
type NotAnEventError struct {
	ID string
}

func (e *NotAnEventError) Error() string {
	return fmt.Sprintf("ledger: %q is not an event", e.ID)
}

// InvalidIntervalError is returned by the edit flows when End is not after
// Start on a timed item.
type InvalidIntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("ledger: end %s must be after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}
