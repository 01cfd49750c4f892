// Package model defines the schedulable items held by the planner ledger.
package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date format used for anchors and due dates.
const DateLayout = "2006-01-02"

// NewItemID is the AgainstID reported by a conflict check for an item that
// does not exist yet.
const NewItemID = "new"

type Kind string

const (
	KindTask  Kind = "task"
	KindEvent Kind = "event"
)

type Category string

const (
	CategoryInbox    Category = "Inbox"
	CategoryOverdue  Category = "Overdue"
	CategoryWork     Category = "Work"
	CategoryFamily   Category = "Family"
	CategoryPersonal Category = "Personal"
	CategoryTravel   Category = "Travel"
)

// Categories returns the fixed category list in sidebar order.
func Categories() []Category {
	return []Category{
		CategoryInbox,
		CategoryOverdue,
		CategoryWork,
		CategoryFamily,
		CategoryPersonal,
		CategoryTravel,
	}
}

// ParseCategory matches raw against the category names, case-insensitively.
func ParseCategory(raw string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), strings.TrimSpace(raw)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("model: unknown category %q", raw)
}

var categoryColors = map[Category]string{
	CategoryInbox:    "#60a5fa",
	CategoryOverdue:  "#ef4444",
	CategoryWork:     "#3b82f6",
	CategoryFamily:   "#22c55e",
	CategoryPersonal: "#f59e0b",
	CategoryTravel:   "#a855f7",
}

// CategoryColor returns the default colour for c, or the Inbox colour for
// unknown categories.
func CategoryColor(c Category) string {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return categoryColors[CategoryInbox]
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("model: unknown priority %q", raw)
}

// Source marks where an event came from. It is provenance only.
type Source string

const (
	SourceLocal    Source = "local"
	SourceGoogle   Source = "google"
	SourceOutlook  Source = "outlook"
	SourceApple    Source = "apple"
	SourceFastmail Source = "fastmail"
)

func ParseSource(raw string) (Source, error) {
	switch s := Source(strings.ToLower(strings.TrimSpace(raw))); s {
	case SourceLocal, SourceGoogle, SourceOutlook, SourceApple, SourceFastmail:
		return s, nil
	case "":
		return SourceLocal, nil
	}
	return "", fmt.Errorf("model: unknown source %q", raw)
}

// Interval is a closed-open span of absolute instants.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether End is strictly after Start. All-day spans are
// always accepted.
func (iv Interval) Valid(allDay bool) bool {
	return allDay || iv.End.After(iv.Start)
}

func (iv Interval) Minutes() float64 {
	return iv.End.Sub(iv.Start).Minutes()
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Collaborator struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Conflict records one placed item that overlaps a candidate interval.
type Conflict struct {
	ItemID         string  `json:"item_id"`
	AgainstID      string  `json:"against_id"`
	OverlapMinutes float64 `json:"overlap_minutes"`
}

// Base holds the fields shared by tasks and events.
type Base struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category"`
	Color       string   `json:"color"`
}

// Item is either a *Task or an *Event.
type Item interface {
	ItemID() string
	Kind() Kind
	Common() *Base
	// Span returns the resolved interval, or false for an unscheduled task.
	Span() (Interval, bool)
	Clone() Item
}

type Task struct {
	Base
	Completed  bool       `json:"completed"`
	Priority   Priority   `json:"priority"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Schedule   *Interval  `json:"schedule,omitempty"`
	Subtasks   []Subtask  `json:"subtasks"`
	SharedWith []string   `json:"shared_with"`
}

func (t *Task) ItemID() string { return t.ID }
func (t *Task) Kind() Kind     { return KindTask }
func (t *Task) Common() *Base  { return &t.Base }

func (t *Task) Span() (Interval, bool) {
	if t.Schedule == nil {
		return Interval{}, false
	}
	return *t.Schedule, true
}

// Overdue is derived on read: a due date strictly before now on an
// incomplete task.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed
}

func (t *Task) Clone() Item {
	cp := *t
	if t.DueDate != nil {
		due := *t.DueDate
		cp.DueDate = &due
	}
	if t.Schedule != nil {
		sched := *t.Schedule
		cp.Schedule = &sched
	}
	cp.Subtasks = slices.Clone(t.Subtasks)
	cp.SharedWith = slices.Clone(t.SharedWith)
	return &cp
}

type Event struct {
	Base
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Attendees   []string  `json:"attendees"`
	SharedLabel string    `json:"shared_label,omitempty"`
	Source      Source    `json:"source"`
}

func (e *Event) ItemID() string { return e.ID }
func (e *Event) Kind() Kind     { return KindEvent }
func (e *Event) Common() *Base  { return &e.Base }

func (e *Event) Span() (Interval, bool) {
	return Interval{Start: e.Start, End: e.End}, true
}

func (e *Event) Clone() Item {
	cp := *e
	cp.Attendees = slices.Clone(e.Attendees)
	return &cp
}
