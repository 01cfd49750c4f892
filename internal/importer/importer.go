// Package importer validates task batches pulled from other tools and
// turns them into ledger inputs.
package importer

import (
	"fmt"
	"strings"
	"time"

	"weekplan/internal/ledger"
	"weekplan/internal/model"
)

// Provider names the tool a batch came from.
type Provider string

const (
	ProviderNotion  Provider = "notion"
	ProviderClickUp Provider = "clickup"
	ProviderLinear  Provider = "linear"
	ProviderTodoist Provider = "todoist"
)

func knownProvider(p Provider) bool {
	switch p {
	case ProviderNotion, ProviderClickUp, ProviderLinear, ProviderTodoist:
		return true
	}
	return false
}

// Request is the import body. Optional fields are pointers so absence can
// be told apart from zero values.
type Request struct {
	Provider *string      `json:"provider,omitempty"`
	Tasks    []TaskRecord `json:"tasks"`
}

type TaskRecord struct {
	Title       *string `json:"title"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// FieldError points at one invalid field, e.g. "tasks[2].category".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field problem found in a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "importer: invalid request: " + strings.Join(parts, "; ")
}

// Batch is a validated request.
type Batch struct {
	Provider Provider
	Tasks    []ledger.TaskInput
}

// Normalize validates req and maps it onto ledger.TaskInput values with
// defaults applied (category Inbox, priority medium, not completed). Dates
// are parsed in loc when they carry no offset. Imported tasks are never
// scheduled.
func Normalize(req Request, loc *time.Location) (Batch, error) {
	if loc == nil {
		loc = time.UTC
	}
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	var batch Batch
	if req.Provider != nil {
		p := Provider(strings.ToLower(strings.TrimSpace(*req.Provider)))
		if knownProvider(p) {
			batch.Provider = p
		} else {
			add("provider", "must be one of notion, clickup, linear, todoist")
		}
	}
	if req.Tasks == nil {
		add("tasks", "required")
	}

	for i, rec := range req.Tasks {
		field := func(name string) string { return fmt.Sprintf("tasks[%d].%s", i, name) }
		in := ledger.TaskInput{
			Category: model.CategoryInbox,
			Priority: model.PriorityMedium,
		}

		if rec.Title == nil {
			add(field("title"), "required")
		} else if strings.TrimSpace(*rec.Title) == "" {
			add(field("title"), "must not be empty")
		} else {
			in.Title = strings.TrimSpace(*rec.Title)
		}
		if rec.Description != nil {
			in.Description = *rec.Description
		}
		if rec.Category != nil {
			c, err := model.ParseCategory(*rec.Category)
			if err != nil {
				add(field("category"), "must be one of Inbox, Overdue, Work, Family, Personal, Travel")
			} else {
				in.Category = c
			}
		}
		if rec.DueDate != nil {
			due, err := ParseDate(*rec.DueDate, loc)
			if err != nil {
				add(field("dueDate"), "must be an RFC 3339 timestamp or YYYY-MM-DD date")
			} else {
				in.DueDate = &due
			}
		}
		if rec.Priority != nil {
			p, err := model.ParsePriority(*rec.Priority)
			if err != nil {
				add(field("priority"), "must be one of low, medium, high")
			} else {
				in.Priority = p
			}
		}
		if rec.Completed != nil {
			in.Completed = *rec.Completed
		}
		batch.Tasks = append(batch.Tasks, in)
	}

	if len(errs) > 0 {
		return Batch{}, &ValidationError{Fields: errs}
	}
	return batch, nil
}

// ParseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date, the
// latter taken as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(model.DateLayout, s, loc)
}

// Apply adds every task in b to l and returns the new ids in input order.
func Apply(l *ledger.Ledger, b Batch) []string {
	ids := make([]string, 0, len(b.Tasks))
	for _, in := range b.Tasks {
		ids = append(ids, l.AddTask(in))
	}
	return ids
}
