package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-wraith/pkg/notify"
	"github.com/teslashibe/go-wraith/pkg/sleep"
)

var (
	_ Store           = (*SQLiteStore)(nil)
	_ Store           = (*MemoryStore)(nil)
	_ notify.Notifier = (*SQLiteStore)(nil)
	_ notify.Notifier = (*MemoryStore)(nil)
)

// stores returns a fresh instance of every implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "wraith.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"sqlite": sq, "memory": NewMemory()}
}

func TestStore_DrowsyCounter(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if n, err := s.DrowsyCount(ctx); err != nil || n != 0 {
				t.Fatalf("initial count = %d, %v", n, err)
			}
			for want := 1; want <= 3; want++ {
				if n, err := s.IncrementDrowsy(ctx); err != nil || n != want {
					t.Fatalf("IncrementDrowsy = %d, %v; want %d", n, err, want)
				}
			}
			if err := s.ResetDrowsy(ctx); err != nil {
				t.Fatal(err)
			}
			if n, _ := s.DrowsyCount(ctx); n != 0 {
				t.Errorf("count after reset = %d", n)
			}
		})
	}
}

func TestStore_SleepProfile(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, ok, err := s.LoadSleep(ctx)
			if err != nil || ok {
				t.Fatalf("empty LoadSleep = %v, %v", ok, err)
			}
			if p.IdealHours != sleep.DefaultIdealHours {
				t.Errorf("default ideal = %v", p.IdealHours)
			}

			hours := 5.25
			if err := s.SaveSleep(ctx, sleep.Profile{IdealHours: 8, LastSleepHours: &hours}); err != nil {
				t.Fatal(err)
			}
			hours = 1 // caller mutation must not leak into the store

			p, ok, err = s.LoadSleep(ctx)
			if err != nil || !ok {
				t.Fatalf("LoadSleep = %v, %v", ok, err)
			}
			if p.IdealHours != 8 || p.LastSleepHours == nil || *p.LastSleepHours != 5.25 {
				t.Errorf("loaded %+v", p)
			}
		})
	}
}

func TestStore_Records(t *testing.T) {
	base := time.Unix(1000, 0).UTC()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := range 3 {
				rec := notify.NewRecord(base.Add(time.Duration(i) * time.Minute))
				rec.Score = i
				if err := s.SaveRecord(ctx, rec); err != nil {
					t.Fatal(err)
				}
			}

			got, err := s.Records(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].Score != 2 || got[1].Score != 1 {
				t.Errorf("Records = %+v", got)
			}
		})
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wraith.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	s.IncrementDrowsy(ctx)
	s.IncrementDrowsy(ctx)
	s.Notify(notify.NewRecord(time.Now()))
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if n, _ := s.DrowsyCount(ctx); n != 2 {
		t.Errorf("count after reopen = %d, want 2", n)
	}
	if recs, _ := s.Records(ctx, 0); len(recs) != 1 {
		t.Errorf("records after reopen = %d, want 1", len(recs))
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	m := NewMemory()
	m.Close()
	if _, err := m.IncrementDrowsy(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}
