package ledger

import (
	"fmt"
	"slices"
	"time"

	"weekplan/internal/model"
)

// State is the serializable form of a ledger, as stored by persistence.
type State struct {
	WeekStart     string               `json:"week_start"`
	SelectedDate  string               `json:"selected_date"`
	Tasks         []model.Task         `json:"tasks"`
	Events        []model.Event        `json:"events"`
	Order         []string             `json:"order"`
	Collaborators []model.Collaborator `json:"collaborators"`
	CurrentUserID string               `json:"current_user_id,omitempty"`
}

// Snapshot deep-copies the ledger into a State.
func (l *Ledger) Snapshot() State {
	st := State{
		WeekStart:     l.weekStart.Format(model.DateLayout),
		SelectedDate:  l.selectedDate.Format(model.DateLayout),
		Tasks:         []model.Task{},
		Events:        []model.Event{},
		Order:         slices.Clone(l.order),
		Collaborators: slices.Clone(l.collaborators),
		CurrentUserID: l.currentUserID,
	}
	for _, id := range l.order {
		switch it := l.items[id].Clone().(type) {
		case *model.Task:
			st.Tasks = append(st.Tasks, *it)
		case *model.Event:
			st.Events = append(st.Events, *it)
		}
	}
	return st
}

// Restore rebuilds a ledger from st. Options are applied first, so the
// location used to parse the anchors is the configured one. Ids missing
// from st.Order are appended; unknown or repeated order entries are dropped.
func Restore(st State, opts ...Option) (*Ledger, error) {
	l := New(opts...)

	for i := range st.Tasks {
		t := st.Tasks[i].Clone().(*model.Task)
		if err := l.restoreItem(t); err != nil {
			return nil, err
		}
	}
	for i := range st.Events {
		e := st.Events[i].Clone().(*model.Event)
		if err := l.restoreItem(e); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(l.items))
	order := make([]string, 0, len(l.items))
	for _, id := range st.Order {
		if _, ok := l.items[id]; ok && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, id := range l.order {
		if !seen[id] {
			order = append(order, id)
		}
	}
	l.order = order

	if st.WeekStart != "" {
		ws, err := time.ParseInLocation(model.DateLayout, st.WeekStart, l.loc)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse week_start: %w", err)
		}
		l.weekStart = MondayOf(ws, l.loc)
	}
	if st.SelectedDate != "" {
		sd, err := time.ParseInLocation(model.DateLayout, st.SelectedDate, l.loc)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse selected_date: %w", err)
		}
		l.selectedDate = sd
	}
	if len(st.Collaborators) > 0 {
		l.collaborators = slices.Clone(st.Collaborators)
	}
	if st.CurrentUserID != "" {
		l.currentUserID = st.CurrentUserID
	}
	return l, nil
}

// restoreItem appends in load order; the final order is fixed up by Restore.
func (l *Ledger) restoreItem(it model.Item) error {
	id := it.ItemID()
	if id == "" {
		return fmt.Errorf("ledger: restore %s with empty id", it.Kind())
	}
	if _, dup := l.items[id]; dup {
		return fmt.Errorf("ledger: restore duplicate id %q", id)
	}
	l.items[id] = it
	l.order = append(l.order, id)
	return nil
}
