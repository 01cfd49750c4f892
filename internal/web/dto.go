package web

import (
	"fmt"
	"strings"
	"time"

	"weekplan/internal/importer"
	"weekplan/internal/ledger"
	"weekplan/internal/model"
)

// taskDTO and eventDTO tag items with their kind so clients can tell the
// two apart in mixed lists.
type taskDTO struct {
	Type model.Kind `json:"type"`
	*model.Task
	Overdue bool `json:"overdue"`
}

type eventDTO struct {
	Type model.Kind `json:"type"`
	*model.Event
}

func toDTO(it model.Item, now time.Time) any {
	switch v := it.(type) {
	case *model.Task:
		return taskDTO{Type: model.KindTask, Task: v, Overdue: v.Overdue(now)}
	case *model.Event:
		return eventDTO{Type: model.KindEvent, Event: v}
	}
	return nil
}

func toDTOs(items []model.Item, now time.Time) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, toDTO(it, now))
	}
	return out
}

type dayDTO struct {
	Date  string `json:"date"`
	Items []any  `json:"items"`
}

type weekResponse struct {
	WeekStart    string   `json:"week_start"`
	SelectedDate string   `json:"selected_date"`
	Days         []dayDTO `json:"days"`
}

type groupDTO struct {
	Category model.Category `json:"category"`
	Color    string         `json:"color"`
	Tasks    []any          `json:"tasks"`
}

type conflictResponse struct {
	Error     string           `json:"error"`
	ID        string           `json:"id"`
	Conflicts []model.Conflict `json:"conflicts"`
}

type importErrorResponse struct {
	Error  string                `json:"error"`
	Fields []importer.FieldError `json:"fields"`
}

// timeValue accepts an RFC 3339 timestamp or a bare date.
type timeValue struct {
	time.Time
	dateOnly bool
}

func (t *timeValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if v, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return fmt.Errorf("time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	t.Time, t.dateOnly = v, true
	return nil
}

// in re-anchors a bare date to midnight in loc.
func (t timeValue) in(loc *time.Location) time.Time {
	if !t.dateOnly {
		return t.Time
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

type spanRequest struct {
	Start timeValue `json:"start"`
	End   timeValue `json:"end"`
}

type taskRequest struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Color       string          `json:"color,omitempty"`
	Completed   bool            `json:"completed,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	DueDate     *timeValue      `json:"due_date,omitempty"`
	Schedule    *spanRequest    `json:"schedule,omitempty"`
	Subtasks    []model.Subtask `json:"subtasks,omitempty"`
	SharedWith  []string        `json:"shared_with,omitempty"`
}

func (req taskRequest) input(loc *time.Location) (ledger.TaskInput, error) {
	in := ledger.TaskInput{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Completed:   req.Completed,
		Subtasks:    req.Subtasks,
		SharedWith:  req.SharedWith,
	}
	if strings.TrimSpace(req.Title) == "" {
		return in, fmt.Errorf("title is required")
	}
	if req.Category != "" {
		c, err := model.ParseCategory(req.Category)
		if err != nil {
			return in, err
		}
		in.Category = c
	}
	if req.Priority != "" {
		p, err := model.ParsePriority(req.Priority)
		if err != nil {
			return in, err
		}
		in.Priority = p
	}
	if req.DueDate != nil && !req.DueDate.IsZero() {
		due := req.DueDate.in(loc)
		in.DueDate = &due
	}
	if req.Schedule != nil {
		if req.Schedule.Start.IsZero() || req.Schedule.End.IsZero() {
			return in, fmt.Errorf("schedule needs both start and end")
		}
		iv := model.Interval{Start: req.Schedule.Start.in(loc), End: req.Schedule.End.in(loc)}
		if !iv.Valid(false) {
			return in, fmt.Errorf("schedule end must be after start")
		}
		in.Schedule = &iv
	}
	return in, nil
}

type eventRequest struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Color       string    `json:"color,omitempty"`
	Start       timeValue `json:"start"`
	End         timeValue `json:"end"`
	AllDay      bool      `json:"all_day,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	SharedLabel string    `json:"shared_label,omitempty"`
	Source      string    `json:"source,omitempty"`
}

func (req eventRequest) input(loc *time.Location) (ledger.EventInput, error) {
	in := ledger.EventInput{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Start:       req.Start.in(loc),
		End:         req.End.in(loc),
		AllDay:      req.AllDay,
		Attendees:   req.Attendees,
		SharedLabel: req.SharedLabel,
	}
	if strings.TrimSpace(req.Title) == "" {
		return in, fmt.Errorf("title is required")
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return in, fmt.Errorf("start and end are required")
	}
	if req.Category != "" {
		c, err := model.ParseCategory(req.Category)
		if err != nil {
			return in, err
		}
		in.Category = c
	}
	src, err := model.ParseSource(req.Source)
	if err != nil {
		return in, err
	}
	in.Source = src
	return in, nil
}

// checkCategory rejects unknown categories in patches.
func checkCategory(c *model.Category) error {
	if c == nil {
		return nil
	}
	parsed, err := model.ParseCategory(string(*c))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
