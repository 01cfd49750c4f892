package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"weekplan/internal/model"
)

const productID = "-//weekplan//planner//EN"

// Export renders every placed item as a VEVENT. Unscheduled tasks are
// left out.
func Export(items []model.Item, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, it := range items {
		span, ok := it.Span()
		if !ok {
			continue
		}
		base := it.Common()
		ve := cal.AddEvent(it.ItemID() + "@weekplan")
		ve.SetDtStampTime(stamp)
		ve.SetSummary(base.Title)
		if base.Description != "" {
			ve.SetDescription(base.Description)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, string(base.Category))

		switch v := it.(type) {
		case *model.Event:
			if v.AllDay {
				ve.SetAllDayStartAt(span.Start)
				ve.SetAllDayEndAt(span.End)
			} else {
				ve.SetStartAt(span.Start)
				ve.SetEndAt(span.End)
			}
			for _, a := range v.Attendees {
				ve.AddAttendee(a)
			}
		case *model.Task:
			ve.SetStartAt(span.Start)
			ve.SetEndAt(span.End)
		}
	}
	return cal.Serialize()
}
