// Package ledger holds the planner's tasks and events and enforces the
// no-double-booking rule when items are placed on the timeline.
//
// A Ledger is not safe for concurrent use. Callers that share one across
// goroutines must serialize access (see internal/session).
package ledger

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"weekplan/internal/model"
)

// Ledger owns every item. Reads hand out clones; all changes go through
// the methods below.
type Ledger struct {
	items map[string]model.Item
	// order holds live ids, newest first.
	order []string

	weekStart    time.Time
	selectedDate time.Time

	collaborators []model.Collaborator
	currentUserID string

	loc   *time.Location
	now   func() time.Time
	newID func() string
}

type Option func(*Ledger)

// WithClock sets the source of "now", used for the initial anchors and the
// derived overdue flag.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLocation sets the zone whose calendar days define "same day" and
// week boundaries. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		if gen != nil {
			l.newID = gen
		}
	}
}

func WithCollaborators(c []model.Collaborator) Option {
	return func(l *Ledger) {
		if len(c) > 0 {
			l.collaborators = slices.Clone(c)
		}
	}
}

func WithCurrentUser(id string) Option {
	return func(l *Ledger) {
		if id != "" {
			l.currentUserID = id
		}
	}
}

// DefaultCollaborators is the directory used when none is configured.
func DefaultCollaborators() []model.Collaborator {
	return []model.Collaborator{
		{ID: "u1", Name: "You"},
		{ID: "u2", Name: "Sara"},
		{ID: "u3", Name: "John"},
	}
}

// New returns an empty ledger anchored on the week containing now.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		items:         make(map[string]model.Item),
		collaborators: DefaultCollaborators(),
		currentUserID: "u1",
		loc:           time.UTC,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	today := l.now()
	l.weekStart = MondayOf(today, l.loc)
	l.selectedDate = dateOf(today, l.loc)
	return l
}

func (l *Ledger) Location() *time.Location { return l.loc }

// Now returns the ledger clock's current time.
func (l *Ledger) Now() time.Time { return l.now() }

func (l *Ledger) WeekStart() time.Time    { return l.weekStart }
func (l *Ledger) SelectedDate() time.Time { return l.selectedDate }
func (l *Ledger) CurrentUserID() string   { return l.currentUserID }

func (l *Ledger) Collaborators() []model.Collaborator {
	return slices.Clone(l.collaborators)
}

func (l *Ledger) Len() int { return len(l.order) }

// Order returns the live ids, newest first.
func (l *Ledger) Order() []string {
	return slices.Clone(l.order)
}

// Item returns a copy of the item with the given id.
func (l *Ledger) Item(id string) (model.Item, bool) {
	it, ok := l.items[id]
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// Items returns copies of all items in ledger order.
func (l *Ledger) Items() []model.Item {
	out := make([]model.Item, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.items[id].Clone())
	}
	return out
}

func (l *Ledger) task(id string) (*model.Task, bool) {
	t, ok := l.items[id].(*model.Task)
	return t, ok
}

func (l *Ledger) event(id string) (*model.Event, bool) {
	e, ok := l.items[id].(*model.Event)
	return e, ok
}

// insert stores it and moves its id to the front of order. Re-adding an
// existing id replaces the item without duplicating the order entry.
func (l *Ledger) insert(it model.Item) {
	id := it.ItemID()
	if _, exists := l.items[id]; exists {
		l.order = slices.DeleteFunc(l.order, func(x string) bool { return x == id })
	}
	l.items[id] = it
	l.order = slices.Insert(l.order, 0, id)
}
