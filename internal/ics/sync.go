package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"weekplan/internal/ledger"
	appLog "weekplan/internal/log"
	"weekplan/internal/model"
)

// SyncStats summarizes one Apply run.
type SyncStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// EventID derives a stable ledger id for an imported VEVENT, so repeated
// refreshes overwrite instead of duplicating.
func EventID(ev ParsedEvent) string {
	key := ev.UID
	if ev.IsOverride {
		key += "@" + ev.Start.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(key))
	return idPrefix(ev.Source) + hex.EncodeToString(sum[:6])
}

// idPrefix is fixed-length so one source's ids are never a prefix of
// another's, whatever the configured ids look like.
func idPrefix(src Source) string {
	sum := sha256.Sum256([]byte(src.ID))
	return "ics-" + hex.EncodeToString(sum[:4]) + "-"
}

// ToEventInput maps a parsed VEVENT onto a ledger event. All-day dates are
// re-anchored to midnight in loc so they land on the intended calendar day.
func ToEventInput(ev ParsedEvent, loc *time.Location) ledger.EventInput {
	if loc == nil {
		loc = time.UTC
	}
	title := strings.TrimSpace(ev.Summary)
	if title == "" {
		title = "(untitled)"
	}
	desc := ev.Description
	if ev.Location != "" {
		if desc != "" {
			desc += "\n"
		}
		desc += "Location: " + ev.Location
	}

	start, end := ev.Start, ev.End
	if ev.AllDay {
		start = midnight(start, loc)
		end = midnight(end, loc)
	}

	return ledger.EventInput{
		ID:          EventID(ev),
		Title:       title,
		Description: desc,
		Category:    model.CategoryWork,
		Start:       start,
		End:         end,
		AllDay:      ev.AllDay,
		Attendees:   ev.Attendees,
		Source:      ev.Source.Provider,
	}
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Apply upserts events from one source into l and drops events previously
// imported from that source which the feed no longer carries. Cancelled
// events are removed.
func Apply(l *ledger.Ledger, src Source, events []ParsedEvent) SyncStats {
	var stats SyncStats
	seen := make(map[string]bool, len(events))

	for _, ev := range events {
		id := EventID(ev)
		if ev.Cancelled() {
			if it, ok := l.Item(id); ok && it.Kind() == model.KindEvent {
				l.RemoveItem(id)
				stats.Removed++
			} else {
				stats.Skipped++
			}
			continue
		}
		in := ToEventInput(ev, l.Location())
		got, created := l.ImportEvent(in)
		seen[got] = true
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	prefix := idPrefix(src)
	for _, it := range l.Items() {
		if it.Kind() != model.KindEvent || !strings.HasPrefix(it.ItemID(), prefix) || seen[it.ItemID()] {
			continue
		}
		l.RemoveItem(it.ItemID())
		stats.Removed++
	}

	appLog.Info("ics sync applied", "id", src.ID,
		"created", stats.Created, "updated", stats.Updated,
		"removed", stats.Removed, "skipped", stats.Skipped)
	return stats
}
