package ledger

import (
	"slices"
	"time"

	"weekplan/internal/model"
)

// TaskInput is the accepted shape for AddTask. Zero values take defaults.
type TaskInput struct {
	ID          string
	Title       string
	Description string
	Category    model.Category
	Color       string
	Completed   bool
	Priority    model.Priority
	DueDate     *time.Time
	Schedule    *model.Interval
	Subtasks    []model.Subtask
	SharedWith  []string
}

// EventInput is the accepted shape for AddEvent. Zero values take defaults.
type EventInput struct {
	ID          string
	Title       string
	Description string
	Category    model.Category
	Color       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Attendees   []string
	SharedLabel string
	Source      model.Source
}

// Patch changes fields common to both item kinds. Nil fields are left
// untouched.
type Patch struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Category    *model.Category `json:"category,omitempty"`
	Color       *string         `json:"color,omitempty"`
}

func (p Patch) apply(b *model.Base) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Color != nil {
		b.Color = *p.Color
	}
}

// TaskPatch changes a task. Nil pointers and nil slices mean "unchanged";
// an empty non-nil slice clears the list.
type TaskPatch struct {
	Patch
	Completed     *bool           `json:"completed,omitempty"`
	Priority      *model.Priority `json:"priority,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	ClearDueDate  bool            `json:"clear_due_date,omitempty"`
	Schedule      *model.Interval `json:"schedule,omitempty"`
	ClearSchedule bool            `json:"clear_schedule,omitempty"`
	Subtasks      []model.Subtask `json:"subtasks,omitempty"`
	SharedWith    []string        `json:"shared_with,omitempty"`
}

func (p TaskPatch) apply(t *model.Task) {
	p.Patch.apply(&t.Base)
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		due := *p.DueDate
		t.DueDate = &due
	}
	switch {
	case p.ClearSchedule:
		t.Schedule = nil
	case p.Schedule != nil:
		sched := *p.Schedule
		t.Schedule = &sched
	}
	if p.Subtasks != nil {
		t.Subtasks = slices.Clone(p.Subtasks)
	}
	if p.SharedWith != nil {
		t.SharedWith = slices.Clone(p.SharedWith)
	}
}

// EventPatch changes an event. Nil pointers and nil slices mean
// "unchanged".
type EventPatch struct {
	Patch
	Span        *model.Interval `json:"span,omitempty"`
	AllDay      *bool           `json:"all_day,omitempty"`
	Attendees   []string        `json:"attendees,omitempty"`
	SharedLabel *string         `json:"shared_label,omitempty"`
	Source      *model.Source   `json:"source,omitempty"`
}

func (p EventPatch) apply(e *model.Event) {
	p.Patch.apply(&e.Base)
	if p.Span != nil {
		e.Start, e.End = p.Span.Start, p.Span.End
	}
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}
	if p.Attendees != nil {
		e.Attendees = slices.Clone(p.Attendees)
	}
	if p.SharedLabel != nil {
		e.SharedLabel = *p.SharedLabel
	}
	if p.Source != nil {
		e.Source = *p.Source
	}
}

// AddTask creates a task and returns its id. It never checks conflicts,
// even when in.Schedule is set.
func (l *Ledger) AddTask(in TaskInput) string {
	id := in.ID
	if id == "" {
		id = l.newID()
	}
	category := in.Category
	if category == "" {
		category = model.CategoryInbox
	}
	color := in.Color
	if color == "" {
		color = model.CategoryColor(category)
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	t := &model.Task{
		Base: model.Base{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			Category:    category,
			Color:       color,
		},
		Completed:  in.Completed,
		Priority:   priority,
		Subtasks:   slices.Clone(in.Subtasks),
		SharedWith: slices.Clone(in.SharedWith),
	}
	if t.Subtasks == nil {
		t.Subtasks = []model.Subtask{}
	}
	if t.SharedWith == nil {
		t.SharedWith = []string{}
	}
	if in.DueDate != nil {
		due := *in.DueDate
		t.DueDate = &due
	}
	if in.Schedule != nil {
		sched := *in.Schedule
		t.Schedule = &sched
	}

	l.insert(t)
	return id
}

// AddEvent creates an event and returns its id. Creation does not check
// conflicts; use MoveEvent to place it under the no-overlap rule.
func (l *Ledger) AddEvent(in EventInput) string {
	id := in.ID
	if id == "" {
		id = l.newID()
	}
	l.insert(l.newEvent(id, in))
	return id
}

func (l *Ledger) newEvent(id string, in EventInput) *model.Event {
	category := in.Category
	if category == "" {
		category = model.CategoryWork
	}
	color := in.Color
	if color == "" {
		color = model.CategoryColor(category)
	}
	source := in.Source
	if source == "" {
		source = model.SourceLocal
	}
	attendees := slices.Clone(in.Attendees)
	if attendees == nil {
		attendees = []string{}
	}
	return &model.Event{
		Base: model.Base{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			Category:    category,
			Color:       color,
		},
		Start:       in.Start,
		End:         in.End,
		AllDay:      in.AllDay,
		Attendees:   attendees,
		SharedLabel: in.SharedLabel,
		Source:      source,
	}
}

// ImportEvent inserts or refreshes an event coming from an external
// calendar. An existing event with the same id is overwritten in place and
// keeps its position in the order; otherwise a new event is added. An id
// already held by a task is not reused: the event moves to in.ID+"~event",
// which is stable across refreshes and keeps the caller's id prefix.
func (l *Ledger) ImportEvent(in EventInput) (id string, created bool) {
	for in.ID != "" {
		if _, ok := l.event(in.ID); ok {
			l.items[in.ID] = l.newEvent(in.ID, in)
			return in.ID, false
		}
		if _, taken := l.items[in.ID]; !taken {
			break
		}
		in.ID += importedIDSuffix
	}
	return l.AddEvent(in), true
}

const importedIDSuffix = "~event"

// UpdateItem applies the common-field patch. Unknown ids are ignored.
func (l *Ledger) UpdateItem(id string, p Patch) {
	it, ok := l.items[id]
	if !ok {
		return
	}
	p.apply(it.Common())
}

// UpdateTask applies p without re-checking conflicts. Unknown ids are
// ignored; an event id yields *NotATaskError.
func (l *Ledger) UpdateTask(id string, p TaskPatch) error {
	if _, ok := l.items[id]; !ok {
		return nil
	}
	t, ok := l.task(id)
	if !ok {
		return &NotATaskError{ID: id}
	}
	p.apply(t)
	return nil
}

// UpdateEvent applies p without re-checking conflicts. Unknown ids are
// ignored; a task id yields *NotAnEventError.
func (l *Ledger) UpdateEvent(id string, p EventPatch) error {
	if _, ok := l.items[id]; !ok {
		return nil
	}
	e, ok := l.event(id)
	if !ok {
		return &NotAnEventError{ID: id}
	}
	p.apply(e)
	return nil
}

// RemoveItem deletes the item. Unknown ids are ignored.
func (l *Ledger) RemoveItem(id string) {
	if _, ok := l.items[id]; !ok {
		return
	}
	delete(l.items, id)
	l.order = slices.DeleteFunc(l.order, func(x string) bool { return x == id })
}

// ScheduleTask places a task on [start, end). The task's own current slot
// never counts as a conflict.
func (l *Ledger) ScheduleTask(id string, start, end time.Time) error {
	t, ok := l.task(id)
	if !ok {
		return &NotATaskError{ID: id}
	}
	if conflicts := l.ConflictsAt(start, end, id); len(conflicts) > 0 {
		return &ConflictError{ID: id, Conflicts: conflicts}
	}
	t.Schedule = &model.Interval{Start: start, End: end}
	return nil
}

// MoveEvent re-places an event on [start, end) under the same rule as
// ScheduleTask.
func (l *Ledger) MoveEvent(id string, start, end time.Time) error {
	e, ok := l.event(id)
	if !ok {
		return &NotAnEventError{ID: id}
	}
	if conflicts := l.ConflictsAt(start, end, id); len(conflicts) > 0 {
		return &ConflictError{ID: id, Conflicts: conflicts}
	}
	e.Start, e.End = start, end
	return nil
}

// EditTask is the guarded form of UpdateTask used by edit forms: a new
// schedule must be non-empty and conflict-free before anything is written.
func (l *Ledger) EditTask(id string, p TaskPatch) error {
	t, ok := l.task(id)
	if !ok {
		return &NotATaskError{ID: id}
	}
	if p.Schedule != nil && !p.ClearSchedule {
		if err := l.checkPlacement(id, *p.Schedule, false); err != nil {
			return err
		}
	}
	p.apply(t)
	return nil
}

// EditEvent is the guarded form of UpdateEvent. All-day events skip the
// end-after-start check but are still conflict-checked.
func (l *Ledger) EditEvent(id string, p EventPatch) error {
	e, ok := l.event(id)
	if !ok {
		return &NotAnEventError{ID: id}
	}
	if p.Span != nil {
		allDay := e.AllDay
		if p.AllDay != nil {
			allDay = *p.AllDay
		}
		if err := l.checkPlacement(id, *p.Span, allDay); err != nil {
			return err
		}
	}
	p.apply(e)
	return nil
}

func (l *Ledger) checkPlacement(id string, iv model.Interval, allDay bool) error {
	if !iv.Valid(allDay) {
		return &InvalidIntervalError{Start: iv.Start, End: iv.End}
	}
	if conflicts := l.ConflictsAt(iv.Start, iv.End, id); len(conflicts) > 0 {
		return &ConflictError{ID: id, Conflicts: conflicts}
	}
	return nil
}
