// Package gcal pulls events from a Google Calendar into the planner.
package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"weekplan/internal/config"
	"weekplan/internal/ledger"
	appLog "weekplan/internal/log"
	"weekplan/internal/model"
)

// idPrefix namespaces ledger ids of pulled events.
const idPrefix = "gcal-"

// OAuthConfig reads the downloaded client secrets. Only read access is
// requested.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(expand(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("gcal: read client secret file %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gcal: parse client secret file: %w", err)
	}
	return cfg, nil
}

// AuthCodeURL is the consent page the user opens once to grant access.
func AuthCodeURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL("weekplan", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeAndSave trades an authorization code for a token and writes it
// to tokenFile.
func ExchangeAndSave(ctx context.Context, cfg *oauth2.Config, code, tokenFile string) error {
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("gcal: exchange code: %w", err)
	}
	return saveToken(tokenFile, tok)
}

// expand resolves a leading "~" in configured paths.
func expand(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(expand(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("gcal: decode token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	path = expand(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("gcal: cache token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// Client lists events from one calendar.
type Client struct {
	srv        *calendar.Service
	calendarID string
	horizon    time.Duration
}

// New builds a Client from config. The token file must already exist; see
// AuthCodeURL and ExchangeAndSave.
func New(ctx context.Context, gc config.GoogleConfig) (*Client, error) {
	cfg, err := OAuthConfig(gc.CredentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(gc.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("gcal: no usable token, run the auth command first: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("gcal: create calendar service: %w", err)
	}
	return NewWithService(srv, gc.CalendarID, gc.HorizonDays), nil
}

// NewWithService wraps an existing service.
func NewWithService(srv *calendar.Service, calendarID string, horizonDays int) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	if horizonDays <= 0 {
		horizonDays = 28
	}
	return &Client{
		srv:        srv,
		calendarID: calendarID,
		horizon:    time.Duration(horizonDays) * 24 * time.Hour,
	}
}

// ListEvents returns single instances between timeMin and timeMax;
// recurring series are expanded by the API.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	var out []*calendar.Event
	call := c.srv.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	err := call.Pages(ctx, func(page *calendar.Events) error {
		out = append(out, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gcal: list events: %w", err)
	}
	return out, nil
}

// Pull lists the window [from, from+horizon) and converts it.
func (c *Client) Pull(ctx context.Context, from time.Time, loc *time.Location) ([]ledger.EventInput, error) {
	events, err := c.ListEvents(ctx, from, from.Add(c.horizon))
	if err != nil {
		return nil, err
	}
	inputs := make([]ledger.EventInput, 0, len(events))
	for _, ev := range events {
		in, ok, cerr := ToEventInput(ev, loc)
		if cerr != nil {
			appLog.Warn("gcal event skipped", "event", ev.Id, "err", cerr.Error())
			continue
		}
		if ok {
			inputs = append(inputs, in)
		}
	}
	appLog.Info("gcal pull completed", "calendar", c.calendarID, "events", len(inputs))
	return inputs, nil
}

// ToEventInput converts one API event. Cancelled events report ok=false.
func ToEventInput(ev *calendar.Event, loc *time.Location) (in ledger.EventInput, ok bool, err error) {
	if ev == nil || ev.Status == "cancelled" {
		return in, false, nil
	}
	if ev.Start == nil || ev.End == nil {
		return in, false, fmt.Errorf("event %s has no start or end", ev.Id)
	}
	if loc == nil {
		loc = time.UTC
	}

	in = ledger.EventInput{
		ID:          idPrefix + ev.Id,
		Title:       strings.TrimSpace(ev.Summary),
		Description: ev.Description,
		Category:    model.CategoryWork,
		Source:      model.SourceGoogle,
	}
	if in.Title == "" {
		in.Title = "(untitled)"
	}

	if ev.Start.Date != "" {
		in.AllDay = true
		if in.Start, err = time.ParseInLocation(model.DateLayout, ev.Start.Date, loc); err != nil {
			return in, false, err
		}
		if in.End, err = time.ParseInLocation(model.DateLayout, ev.End.Date, loc); err != nil {
			return in, false, err
		}
	} else {
		if in.Start, err = time.Parse(time.RFC3339, ev.Start.DateTime); err != nil {
			return in, false, err
		}
		if in.End, err = time.Parse(time.RFC3339, ev.End.DateTime); err != nil {
			return in, false, err
		}
	}

	for _, a := range ev.Attendees {
		if a == nil || a.Self || a.Email == "" {
			continue
		}
		in.Attendees = append(in.Attendees, a.Email)
	}
	return in, true, nil
}

// Apply upserts pulled events and removes earlier pulls that vanished from
// the window. It returns how many events were created, updated and removed.
func Apply(l *ledger.Ledger, inputs []ledger.EventInput) (created, updated, removed int) {
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		id, isNew := l.ImportEvent(in)
		seen[id] = true
		if isNew {
			created++
		} else {
			updated++
		}
	}
	for _, it := range l.Items() {
		if it.Kind() != model.KindEvent || !strings.HasPrefix(it.ItemID(), idPrefix) || seen[it.ItemID()] {
			continue
		}
		l.RemoveItem(it.ItemID())
		removed++
	}
	return created, updated, removed
}
