package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"weekplan/internal/ledger"
	"weekplan/internal/model"
)

func sampleState(t *testing.T) ledger.State {
	t.Helper()
	now := time.Date(2023, 1, 4, 8, 0, 0, 0, time.UTC)
	l := ledger.New(ledger.WithClock(func() time.Time { return now }))
	if err := ledger.SeedDemo(l); err != nil {
		t.Fatal(err)
	}
	due := now.Add(-time.Hour)
	l.AddTask(ledger.TaskInput{ID: "due", Title: "Pay rent", Category: model.CategoryPersonal, DueDate: &due})
	return l.Snapshot()
}

func testStores(t *testing.T) map[string]Store {
	return map[string]Store{
		"disk":   NewDiskStore(filepath.Join(t.TempDir(), "state")),
		"memory": NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Load(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load before save = %v, want ErrNotFound", err)
			}

			st := sampleState(t)
			if err := s.Save(ctx, "u1", st); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.Load(ctx, "u1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}

			// Compare through a restored ledger; time zones may differ after
			// a JSON trip while instants stay equal.
			l, err := ledger.Restore(got)
			if err != nil {
				t.Fatalf("restore: %v", err)
			}
			if l.Len() != len(st.Order) {
				t.Fatalf("restored %d items, want %d", l.Len(), len(st.Order))
			}
			for i, id := range l.Order() {
				if id != st.Order[i] {
					t.Errorf("order[%d] = %s, want %s", i, id, st.Order[i])
				}
			}
			it, ok := l.Item("due")
			if !ok || it.(*model.Task).DueDate == nil {
				t.Errorf("due task lost its due date: %+v", it)
			}
			if got.WeekStart != st.WeekStart || got.SelectedDate != st.SelectedDate {
				t.Errorf("anchors = %s/%s, want %s/%s", got.WeekStart, got.SelectedDate, st.WeekStart, st.SelectedDate)
			}

			if _, err := s.Load(ctx, "someone-else"); !errors.Is(err, ErrNotFound) {
				t.Errorf("states should be keyed by user, got %v", err)
			}

			if err := s.Delete(ctx, "u1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := s.Delete(ctx, "u1"); err != nil {
				t.Errorf("second delete should be a no-op, got %v", err)
			}
			if _, err := s.Load(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load after delete = %v", err)
			}
		})
	}
}

func TestDiskStoreRejectsUnknownSchema(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskStore(dir)
	key := userKey("u1")
	path := filepath.Join(append([]string{dir}, append(shardTransform(key), key)...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"schema":"other/v9","state":{}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(context.Background(), "u1"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected schema error, got %v", err)
	}
}

func TestUserKeyIsPathSafe(t *testing.T) {
	k := userKey("../../etc/passwd")
	if len(k) != 32 {
		t.Errorf("key length = %d", len(k))
	}
	if parts := shardTransform(k); len(parts) != 2 || parts[0] != k[:2] {
		t.Errorf("shard = %v", parts)
	}
}
