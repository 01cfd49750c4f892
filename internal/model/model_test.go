package model

import (
	"testing"
	"time"
)

func TestTaskOverdue(t *testing.T) {
	now := time.Date(2023, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{}, false},
		{"due in past", Task{DueDate: &past}, true},
		{"due in past but completed", Task{DueDate: &past, Completed: true}, false},
		{"due in future", Task{DueDate: &future}, false},
		{"due exactly now", Task{DueDate: &now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Overdue(now); got != tt.want {
				t.Errorf("Overdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskCloneIsDeep(t *testing.T) {
	due := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	orig := &Task{
		Base:       Base{ID: "t1", Title: "A"},
		DueDate:    &due,
		Schedule:   &Interval{Start: due, End: due.Add(time.Hour)},
		Subtasks:   []Subtask{{ID: "s1", Title: "sub"}},
		SharedWith: []string{"u2"},
	}

	cp := orig.Clone().(*Task)
	cp.Title = "B"
	*cp.DueDate = due.AddDate(0, 0, 1)
	cp.Schedule.End = due
	cp.Subtasks[0].Completed = true
	cp.SharedWith[0] = "u3"

	if orig.Title != "A" || !orig.DueDate.Equal(due) || orig.Schedule.End.Equal(due) {
		t.Fatalf("clone shares scalar/pointer state with original: %+v", orig)
	}
	if orig.Subtasks[0].Completed || orig.SharedWith[0] != "u2" {
		t.Fatalf("clone shares slices with original: %+v", orig)
	}
}

func TestSpan(t *testing.T) {
	start := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	var task Item = &Task{}
	if _, ok := task.Span(); ok {
		t.Error("unscheduled task should have no span")
	}
	task = &Task{Schedule: &Interval{Start: start, End: end}}
	if iv, ok := task.Span(); !ok || !iv.Start.Equal(start) || iv.Minutes() != 60 {
		t.Errorf("task span = %+v, %v", iv, ok)
	}
	var ev Item = &Event{Start: start, End: end}
	if iv, ok := ev.Span(); !ok || !iv.End.Equal(end) {
		t.Errorf("event span = %+v, %v", iv, ok)
	}
}

func TestParseEnums(t *testing.T) {
	if c, err := ParseCategory("work"); err != nil || c != CategoryWork {
		t.Errorf("ParseCategory(work) = %q, %v", c, err)
	}
	if _, err := ParseCategory("Errands"); err == nil {
		t.Error("expected error for unknown category")
	}
	if p, err := ParsePriority("HIGH"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(HIGH) = %q, %v", p, err)
	}
	if s, err := ParseSource(""); err != nil || s != SourceLocal {
		t.Errorf("ParseSource(\"\") = %q, %v", s, err)
	}
	if _, err := ParseSource("icloud"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestCategoryColor(t *testing.T) {
	if got := CategoryColor(CategoryTravel); got != "#a855f7" {
		t.Errorf("Travel colour = %s", got)
	}
	if got := CategoryColor("bogus"); got != CategoryColor(CategoryInbox) {
		t.Errorf("unknown category colour = %s", got)
	}
}

func TestIntervalValid(t *testing.T) {
	start := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	if (Interval{Start: start, End: start}).Valid(false) {
		t.Error("zero-length interval should be invalid")
	}
	if !(Interval{Start: start, End: start}).Valid(true) {
		t.Error("all-day interval should be accepted")
	}
}
