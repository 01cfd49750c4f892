package ledger

import (
	"slices"
	"time"

	"weekplan/internal/model"
)

// ConflictsAt lists the placed items overlapping [start, end), skipping
// unscheduled tasks and excludeID. end <= start is not rejected here.
// Results follow ledger order.
func (l *Ledger) ConflictsAt(start, end time.Time, excludeID string) []model.Conflict {
	against := excludeID
	if against == "" {
		against = model.NewItemID
	}

	var out []model.Conflict
	for _, id := range l.order {
		if id == excludeID {
			continue
		}
		span, ok := l.items[id].Span()
		if !ok {
			continue
		}
		if Overlaps(start, end, span.Start, span.End) {
			out = append(out, model.Conflict{
				ItemID:         id,
				AgainstID:      against,
				OverlapMinutes: overlapMinutes(start, end, span.Start, span.End),
			})
		}
	}
	return out
}

// ItemsForDay returns copies of the events starting and the tasks scheduled
// on day's calendar date (in the ledger location), earliest first.
func (l *Ledger) ItemsForDay(day time.Time) []model.Item {
	var out []model.Item
	for _, id := range l.order {
		it := l.items[id]
		span, ok := it.Span()
		if !ok {
			continue
		}
		if sameDay(span.Start, day, l.loc) {
			out = append(out, it.Clone())
		}
	}
	sortByStart(out)
	return out
}

// Day is one column of the week view.
type Day struct {
	Date  time.Time    `json:"date"`
	Items []model.Item `json:"items"`
}

// ItemsForWeek projects the seven days starting at WeekStart.
func (l *Ledger) ItemsForWeek() []Day {
	days := make([]Day, 0, 7)
	for i := range 7 {
		d := l.weekStart.AddDate(0, 0, i)
		days = append(days, Day{Date: d, Items: l.ItemsForDay(d)})
	}
	return days
}

// TaskGroup is one sidebar section.
type TaskGroup struct {
	Category model.Category `json:"category"`
	Tasks    []*model.Task  `json:"tasks"`
}

// TaskGroups buckets tasks by category in sidebar order. Tasks that are
// overdue at now go to the Overdue group regardless of their category.
func (l *Ledger) TaskGroups(now time.Time) []TaskGroup {
	cats := model.Categories()
	groups := make([]TaskGroup, len(cats))
	index := make(map[model.Category]int, len(cats))
	for i, c := range cats {
		groups[i] = TaskGroup{Category: c, Tasks: []*model.Task{}}
		index[c] = i
	}

	for _, id := range l.order {
		t, ok := l.task(id)
		if !ok {
			continue
		}
		cat := t.Category
		if t.Overdue(now) {
			cat = model.CategoryOverdue
		}
		i, known := index[cat]
		if !known {
			i = index[model.CategoryInbox]
		}
		groups[i].Tasks = append(groups[i].Tasks, t.Clone().(*model.Task))
	}
	return groups
}

// sortByStart orders items by resolved start. Items without one go last.
// The sort is stable so ties keep ledger order.
func sortByStart(items []model.Item) {
	slices.SortStableFunc(items, func(a, b model.Item) int {
		as, aok := a.Span()
		bs, bok := b.Span()
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		default:
			return as.Start.Compare(bs.Start)
		}
	})
}
