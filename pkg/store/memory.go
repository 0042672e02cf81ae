package store

import (
	"context"
	"sort"
	"sync"

	"github.com/teslashibe/go-wraith/pkg/notify"
	"github.com/teslashibe/go-wraith/pkg/sleep"
)

// MemoryStore is an in-process Store. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	drowsy  int
	sleep   *sleep.Profile
	records []notify.Record
	closed  bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) check() error {
	if m.closed {
		return ErrClosed
	}
	return nil
}

// IncrementDrowsy implements Store.
func (m *MemoryStore) IncrementDrowsy(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	m.drowsy++
	return m.drowsy, nil
}

// DrowsyCount implements Store.
func (m *MemoryStore) DrowsyCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drowsy, m.check()
}

// ResetDrowsy implements Store.
func (m *MemoryStore) ResetDrowsy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drowsy = 0
	return m.check()
}

// SaveSleep implements Store.
func (m *MemoryStore) SaveSleep(ctx context.Context, p sleep.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if p.LastSleepHours != nil {
		v := *p.LastSleepHours
		p.LastSleepHours = &v
	}
	m.sleep = &p
	return nil
}

// LoadSleep implements Store.
func (m *MemoryStore) LoadSleep(ctx context.Context) (sleep.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sleep == nil {
		return sleep.DefaultProfile(), false, m.check()
	}
	return *m.sleep, true, m.check()
}

// SaveRecord implements Store.
func (m *MemoryStore) SaveRecord(ctx context.Context, rec notify.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.records = append(m.records, rec)
	return nil
}

// Records implements Store.
func (m *MemoryStore) Records(ctx context.Context, limit int) ([]notify.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	out := make([]notify.Record, len(m.records))
	copy(out, m.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Notify implements notify.Notifier.
func (m *MemoryStore) Notify(rec notify.Record) {
	_ = m.SaveRecord(context.Background(), rec)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
