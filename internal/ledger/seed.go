package ledger

import (
	"time"

	"weekplan/internal/model"
)

// SeedDemo adds the first-run demo content: a standup today at 09:00 and
// a scheduled task at 13:00.
func SeedDemo(l *Ledger) error {
	now := l.now().In(l.loc)
	at := func(hour int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, l.loc)
	}

	l.AddEvent(EventInput{
		Title:       "Standup",
		Category:    model.CategoryWork,
		Start:       at(9),
		End:         at(10),
		Attendees:   []string{"u2"},
		SharedLabel: "You:Sara",
	})

	taskID := l.AddTask(TaskInput{
		Title:    "Plan user interviews",
		Category: model.CategoryWork,
		Subtasks: []model.Subtask{
			{ID: l.newID(), Title: "w/Roger"},
			{ID: l.newID(), Title: "w/Julia"},
			{ID: l.newID(), Title: "w/Paul"},
		},
	})
	return l.ScheduleTask(taskID, at(13), at(14))
}
