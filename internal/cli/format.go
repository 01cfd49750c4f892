package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"weekplan/internal/model"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	overdueColor = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	eventColor   = color.New(color.FgCyan)
)

func printHeader(w io.Writer, title string) {
	_, _ = headerColor.Fprintf(w, "▸ %s\n", title)
}

func printSuccess(w io.Writer, msg string) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", msg)
}

func printEmpty(w io.Writer, msg string) {
	_, _ = dimColor.Fprintf(w, "  %s\n", msg)
}

func timeRange(it model.Item, loc *time.Location) string {
	span, ok := it.Span()
	if !ok {
		return "unscheduled"
	}
	if ev, isEvent := it.(*model.Event); isEvent && ev.AllDay {
		return "all day"
	}
	return span.Start.In(loc).Format("15:04") + "-" + span.End.In(loc).Format("15:04")
}

func glyph(it model.Item) string {
	switch v := it.(type) {
	case *model.Event:
		return "○"
	case *model.Task:
		if v.Completed {
			return "✓"
		}
		return "•"
	}
	return " "
}

// printItems renders one row per item.
func printItems(w io.Writer, items []model.Item, loc *time.Location, now time.Time) {
	if len(items) == 0 {
		printEmpty(w, "nothing planned")
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	for _, it := range items {
		base := it.Common()
		title := base.Title
		switch v := it.(type) {
		case *model.Event:
			title = eventColor.Sprint(title)
		case *model.Task:
			if v.Overdue(now) {
				title = overdueColor.Sprint(title + " (overdue)")
			}
		}
		tbl.AddRow("  "+glyph(it), timeRange(it, loc), title, dimColor.Sprint(string(base.Category)))
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func printTaskGroup(w io.Writer, cat model.Category, tasks []*model.Task, now time.Time, loc *time.Location) {
	printHeader(w, fmt.Sprintf("%s (%d)", cat, len(tasks)))
	if len(tasks) == 0 {
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = "due " + t.DueDate.In(loc).Format(model.DateLayout)
		}
		title := t.Title
		if t.Overdue(now) {
			title = overdueColor.Sprint(title)
		}
		tbl.AddRow("  "+glyph(t), title, string(t.Priority), dimColor.Sprint(due))
	}
	_, _ = fmt.Fprintln(w, tbl)
}
