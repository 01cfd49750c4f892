package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"weekplan/internal/ledger"
	"weekplan/internal/model"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup-1\r\n" +
	"DTSTAMP:20230101T000000Z\r\n" +
	"DTSTART:20230102T090000Z\r\n" +
	"DTEND:20230102T100000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"LOCATION:Room 4\r\n" +
	"ATTENDEE:mailto:sara@example.com\r\n" +
	"RRULE:FREQ=DAILY;COUNT=5\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:offsite-1\r\n" +
	"DTSTAMP:20230101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20230103\r\n" +
	"SUMMARY:Offsite\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20230101T000000Z\r\n" +
	"DTSTART:20230104T090000Z\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

var testSource = Source{ID: "work", URL: "https://cal.example.com/x.ics?token=secret", Provider: model.SourceOutlook}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(testSource, []byte(feed))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (UID-less event skipped)", len(events))
	}

	standup := events[0]
	if standup.UID != "standup-1" || standup.Summary != "Standup" || standup.AllDay {
		t.Errorf("standup = %+v", standup)
	}
	if !standup.Start.Equal(time.Date(2023, 1, 2, 9, 0, 0, 0, time.UTC)) || !standup.End.Equal(time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("standup span = %v..%v", standup.Start, standup.End)
	}
	if standup.RawRRule == "" {
		t.Error("RRULE should be recorded")
	}
	if len(standup.Attendees) != 1 || standup.Attendees[0] != "sara@example.com" {
		t.Errorf("attendees = %v", standup.Attendees)
	}

	offsite := events[1]
	if !offsite.AllDay {
		t.Fatal("offsite should be all-day")
	}
	if y, m, d := offsite.Start.Date(); y != 2023 || m != time.January || d != 3 {
		t.Errorf("offsite start = %v", offsite.Start)
	}
	if got := offsite.End.Sub(offsite.Start); got != 24*time.Hour {
		t.Errorf("offsite length = %v, want one day", got)
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS(testSource, nil); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestToEventInput(t *testing.T) {
	events, err := ParseICS(testSource, []byte(feed))
	if err != nil {
		t.Fatal(err)
	}
	in := ToEventInput(events[0], time.UTC)
	if !strings.HasPrefix(in.ID, idPrefix(testSource)) {
		t.Errorf("id = %q", in.ID)
	}
	if in.Source != model.SourceOutlook {
		t.Errorf("source = %q", in.Source)
	}
	if !strings.Contains(in.Description, "Room 4") {
		t.Errorf("description = %q", in.Description)
	}
	if EventID(events[0]) != in.ID {
		t.Error("EventID must be stable")
	}

	seoul := time.FixedZone("KST", 9*60*60)
	allDay := ToEventInput(events[1], seoul)
	if !allDay.Start.Equal(time.Date(2023, 1, 3, 0, 0, 0, 0, seoul)) {
		t.Errorf("all-day start = %v", allDay.Start)
	}
}

func TestApplyUpsertsAndPrunes(t *testing.T) {
	l := ledger.New(ledger.WithClock(func() time.Time {
		return time.Date(2023, 1, 2, 8, 0, 0, 0, time.UTC)
	}))
	local := l.AddEvent(ledger.EventInput{
		Title: "Lunch",
		Start: time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 1, 2, 13, 0, 0, 0, time.UTC),
	})

	events, err := ParseICS(testSource, []byte(feed))
	if err != nil {
		t.Fatal(err)
	}

	stats := Apply(l, testSource, events)
	if stats.Created != 2 || stats.Updated != 0 {
		t.Fatalf("first apply = %+v", stats)
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}

	events[0].Summary = "Daily standup"
	stats = Apply(l, testSource, events[:1])
	if stats.Updated != 1 || stats.Removed != 1 {
		t.Fatalf("second apply = %+v", stats)
	}
	it, ok := l.Item(EventID(events[0]))
	if !ok || it.Common().Title != "Daily standup" {
		t.Errorf("standup not refreshed: %+v", it)
	}
	if _, ok := l.Item(local); !ok {
		t.Error("local event must survive a sync")
	}

	events[0].Status = "CANCELLED"
	stats = Apply(l, testSource, events[:1])
	if stats.Removed != 1 || l.Len() != 1 {
		t.Errorf("cancel apply = %+v, len = %d", stats, l.Len())
	}
}

func TestApplyKeepsSourcesApart(t *testing.T) {
	l := ledger.New()
	shared := Source{ID: "work-shared", Provider: model.SourceOutlook}

	sharedEvents, err := ParseICS(shared, []byte(feed))
	if err != nil {
		t.Fatal(err)
	}
	workEvents, err := ParseICS(testSource, []byte(feed))
	if err != nil {
		t.Fatal(err)
	}

	Apply(l, shared, sharedEvents)
	stats := Apply(l, testSource, workEvents[:1])
	if stats.Removed != 0 {
		t.Errorf("syncing %q removed events of %q: %+v", testSource.ID, shared.ID, stats)
	}
	if want := len(sharedEvents) + 1; l.Len() != want {
		t.Errorf("len = %d, want %d", l.Len(), want)
	}
	for _, ev := range sharedEvents {
		if _, ok := l.Item(EventID(ev)); !ok {
			t.Errorf("event %s of %q was pruned", ev.UID, shared.ID)
		}
	}
}

func TestExportRoundTrip(t *testing.T) {
	l := ledger.New()
	l.AddEvent(ledger.EventInput{
		ID:        "ev1",
		Title:     "Review",
		Start:     time.Date(2023, 1, 2, 9, 0, 0, 0, time.UTC),
		End:       time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC),
		Attendees: []string{"sara@example.com"},
	})
	l.AddTask(ledger.TaskInput{
		ID:    "t1",
		Title: "Write notes",
		Schedule: &model.Interval{
			Start: time.Date(2023, 1, 2, 11, 0, 0, 0, time.UTC),
			End:   time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC),
		},
	})
	l.AddTask(ledger.TaskInput{ID: "t2", Title: "Someday"})

	out := Export(l.Items(), time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, productID) {
		t.Fatalf("unexpected calendar:\n%s", out)
	}

	events, err := ParseICS(Source{ID: "self"}, []byte(out))
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("exported %d events, want 2 (unscheduled task left out)", len(events))
	}
	uids := map[string]bool{}
	for _, ev := range events {
		uids[ev.UID] = true
	}
	if !uids["ev1@weekplan"] || !uids["t1@weekplan"] {
		t.Errorf("uids = %v", uids)
	}
}

func TestFetcherConditionalCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir()).WithClient(srv.Client())
	src := Source{ID: "work", URL: srv.URL + "/cal.ics"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil || first.FromCache {
		t.Fatalf("first fetch = %+v, %v", first.FromCache, err)
	}
	second, err := f.FetchOne(context.Background(), src)
	if err != nil || !second.FromCache {
		t.Fatalf("second fetch = %+v, %v", second.FromCache, err)
	}
	if string(second.Body) != feed {
		t.Error("cached body differs")
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d", hits.Load())
	}
}

func TestFetcherFallsBackToCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir()).WithClient(srv.Client())
	src := Source{ID: "work", URL: srv.URL}
	if _, err := f.FetchOne(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	fail.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	if err != nil || !res.FromCache {
		t.Fatalf("fallback = %+v, %v", res.FromCache, err)
	}

	_, errs := f.FetchAll(context.Background(), []Source{{ID: "other", URL: srv.URL + "/none"}})
	if len(errs) != 1 {
		t.Errorf("errs = %v", errs)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://cal.example.com/private/abc.ics?token=secret")
	if got != "https://cal.example.com/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
	if strings.Contains(redactURL("not a url"), "not") {
		t.Error("unparseable URLs must be fully redacted")
	}
}
