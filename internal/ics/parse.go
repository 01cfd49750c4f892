package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "weekplan/internal/log"
)

// ParsedEvent is the normalized form of one VEVENT.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	Status      string

	Start  time.Time
	End    time.Time
	AllDay bool

	Attendees []string

	// RawRRule is recorded but never expanded; only the first occurrence
	// lands in the planner.
	RawRRule string
	// IsOverride marks a VEVENT carrying RECURRENCE-ID.
	IsOverride bool
}

// Cancelled reports whether the organizer cancelled the event.
func (e ParsedEvent) Cancelled() bool {
	return strings.EqualFold(e.Status, "CANCELLED")
}

// ParseICS parses a single ICS payload. Events that fail to parse are
// logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		if ev.RawRRule != "" {
			appLog.Debug("ics recurrence not expanded", "id", src.ID, "uid", ev.UID)
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, err
	}

	// DTEND is optional: a date-only event then lasts one day, a timed one
	// is instantaneous.
	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		if out.AllDay {
			out.End, err = ve.GetAllDayEndAt()
		} else {
			out.End, err = ve.GetEndAt()
		}
		if err != nil {
			return out, err
		}
	} else if out.AllDay {
		out.End = out.Start.AddDate(0, 0, 1)
	} else {
		out.End = out.Start
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		if addr := attendeeAddress(p.Value); addr != "" {
			out.Attendees = append(out.Attendees, addr)
		}
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}
	if ve.GetProperty(ical.ComponentPropertyRecurrenceId) != nil {
		out.IsOverride = true
	}

	return out, nil
}

// isDateValue reports VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func attendeeAddress(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		v = v[7:]
	}
	return v
}
