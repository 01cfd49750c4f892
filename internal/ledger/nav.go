package ledger

import "time"

// GoToWeek moves the displayed week by offset weeks.
func (l *Ledger) GoToWeek(offset int) {
	l.weekStart = MondayOf(l.weekStart.AddDate(0, 0, offset*7), l.loc)
}

// SetSelectedDate keeps only the calendar date of t.
func (l *Ledger) SetSelectedDate(t time.Time) {
	l.selectedDate = dateOf(t, l.loc)
}

// MondayOf returns midnight on the Monday of t's week in loc.
func MondayOf(t time.Time, loc *time.Location) time.Time {
	d := dateOf(t, loc)
	back := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -back)
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
