// Package session serializes access to one user's ledger and keeps it in
// sync with a persistence store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"weekplan/internal/ledger"
	appLog "weekplan/internal/log"
	"weekplan/internal/persist"
)

// Options configures Open.
type Options struct {
	UserID string
	Store  persist.Store
	// Ledger options applied on creation and restore (clock, location,
	// collaborators, ...).
	LedgerOptions []ledger.Option
	// SeedDemo adds demo content when no saved state exists.
	SeedDemo bool
	// SaveOnChange writes after every successful Update. When false, call
	// Flush (e.g. from a cron job) to persist pending changes.
	SaveOnChange bool
}

// Session is the single writer in front of a Ledger. The ledger itself has
// no locking; every access goes through Update or View.
type Session struct {
	mu sync.Mutex
	// saveMu orders saves: it is held from snapshot until the store
	// returns, so an older snapshot never lands after a newer one.
	saveMu sync.Mutex
	l      *ledger.Ledger
	store  persist.Store
	userID string
	dirty  bool
	onSave bool
}

// Open loads the user's saved state, or starts a fresh ledger when none
// exists.
func Open(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{
		store:  opts.Store,
		userID: opts.UserID,
		onSave: opts.SaveOnChange,
	}

	if opts.Store != nil {
		st, err := opts.Store.Load(ctx, opts.UserID)
		switch {
		case err == nil:
			l, rerr := ledger.Restore(st, opts.LedgerOptions...)
			if rerr != nil {
				return nil, fmt.Errorf("session: restore state: %w", rerr)
			}
			s.l = l
			appLog.Info("session restored", "user", opts.UserID, "items", l.Len())
			return s, nil
		case errors.Is(err, persist.ErrNotFound):
			// First run for this user.
		default:
			return nil, fmt.Errorf("session: load state: %w", err)
		}
	}

	s.l = ledger.New(opts.LedgerOptions...)
	if opts.SeedDemo {
		if err := ledger.SeedDemo(s.l); err != nil {
			return nil, fmt.Errorf("session: seed demo content: %w", err)
		}
		s.dirty = true
		appLog.Info("session seeded with demo content", "user", opts.UserID)
	}
	if s.dirty && s.onSave {
		if err := s.Flush(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// New wraps an existing ledger without persistence.
func New(l *ledger.Ledger) *Session {
	return &Session{l: l}
}

func (s *Session) UserID() string { return s.userID }

// View runs fn with shared access to the ledger. fn must not keep the
// pointer or mutate through it.
func (s *Session) View(fn func(l *ledger.Ledger)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.l)
}

// Update runs fn exclusively. When fn returns nil the session is marked
// dirty and, with SaveOnChange, saved before Update returns. A save failure
// is logged and returned; the in-memory change is kept.
func (s *Session) Update(ctx context.Context, fn func(l *ledger.Ledger) error) error {
	s.mu.Lock()
	if err := fn(s.l); err != nil {
		s.mu.Unlock()
		return err
	}
	s.dirty = true
	s.mu.Unlock()

	if s.onSave {
		return s.Flush(ctx)
	}
	return nil
}

// Flush saves the current state if anything changed since the last save.
func (s *Session) Flush(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	st := s.l.Snapshot()
	s.dirty = false
	s.mu.Unlock()

	if err := s.store.Save(ctx, s.userID, st); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		appLog.Error("session save failed", err, "user", s.userID)
		return fmt.Errorf("session: save state: %w", err)
	}
	appLog.Debug("session saved", "user", s.userID, "items", len(st.Order))
	return nil
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}
