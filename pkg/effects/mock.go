package effects

import "sync"

// MockPlayer implements Player for testing and records every call.
type MockPlayer struct {
	// PlayFunc is called when Play is invoked. Nil succeeds.
	PlayFunc func(sound string) error

	// StopFunc is called when Stop is invoked. Nil succeeds.
	StopFunc func(sound string) error

	mu    sync.Mutex
	calls []string
}

func (m *MockPlayer) Play(sound string) error {
	m.record("play:" + sound)
	if m.PlayFunc != nil {
		return m.PlayFunc(sound)
	}
	return nil
}

func (m *MockPlayer) Stop(sound string) error {
	m.record("stop:" + sound)
	if m.StopFunc != nil {
		return m.StopFunc(sound)
	}
	return nil
}

func (m *MockPlayer) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// Calls returns the recorded calls as "play:<sound>" / "stop:<sound>".
func (m *MockPlayer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
