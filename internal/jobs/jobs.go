// Package jobs runs the background schedule: batched state saves and
// calendar refreshes.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"weekplan/internal/gcal"
	"weekplan/internal/ics"
	"weekplan/internal/ledger"
	appLog "weekplan/internal/log"
	"weekplan/internal/session"
)

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) { appLog.Debug("cron: "+msg, kv...) }

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped and panics are recovered.
type Scheduler struct {
	c *cron.Cron
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	return &Scheduler{c: cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)}
}

// Add registers fn under a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.c.AddFunc(spec, func() {
		start := time.Now()
		if err := fn(context.Background()); err != nil {
			appLog.Error("job failed", err, "job", name)
			return
		}
		appLog.Debug("job done", "job", name, "took", time.Since(start).String())
	})
	if err != nil {
		return fmt.Errorf("jobs: schedule %s %q: %w", name, spec, err)
	}
	appLog.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// Len reports how many jobs are registered.
func (s *Scheduler) Len() int { return len(s.c.Entries()) }

func (s *Scheduler) Start() { s.c.Start() }

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		appLog.Warn("jobs still running at shutdown")
	}
}

// SaveJob flushes pending session changes.
func SaveJob(sess *session.Session) func(ctx context.Context) error {
	return sess.Flush
}

// Puller is the part of gcal.Client the refresher needs.
type Puller interface {
	Pull(ctx context.Context, from time.Time, loc *time.Location) ([]ledger.EventInput, error)
}

// Refresher pulls every configured calendar into a session. Network work
// happens outside the session lock; only the merge holds it.
type Refresher struct {
	Session *session.Session
	Fetcher *ics.Fetcher
	Sources []ics.Source
	Google  Puller
}

// Run refreshes ICS sources, then Google. Failures of individual sources
// are joined into the returned error; the rest still apply.
func (r *Refresher) Run(ctx context.Context) error {
	var errs []error

	if r.Fetcher != nil && len(r.Sources) > 0 {
		results, fetchErrs := r.Fetcher.FetchAll(ctx, r.Sources)
		errs = append(errs, fetchErrs...)
		for _, res := range results {
			events, err := ics.ParseICS(res.Source, res.Body)
			if err != nil {
				errs = append(errs, fmt.Errorf("ics %s: %w", res.Source.ID, err))
				continue
			}
			src := res.Source
			if err := r.Session.Update(ctx, func(l *ledger.Ledger) error {
				ics.Apply(l, src, events)
				return nil
			}); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if r.Google != nil {
		var loc *time.Location
		var from time.Time
		r.Session.View(func(l *ledger.Ledger) {
			loc = l.Location()
			from = ledger.MondayOf(l.Now(), loc)
		})
		inputs, err := r.Google.Pull(ctx, from, loc)
		if err != nil {
			errs = append(errs, err)
		} else {
			if err := r.Session.Update(ctx, func(l *ledger.Ledger) error {
				c, u, d := gcal.Apply(l, inputs)
				appLog.Info("gcal sync applied", "created", c, "updated", u, "removed", d)
				return nil
			}); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
