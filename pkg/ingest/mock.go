package ingest

import (
	"context"
	"math"
	"sync"

	"github.com/teslashibe/go-wraith/pkg/face"
	"github.com/teslashibe/go-wraith/pkg/pipeline"
)

// MockSink records dispatched messages for testing.
type MockSink struct {
	mu      sync.Mutex
	frames  []face.Frame
	motions []float64
	hits    int

	// Notify, if set, is called after every recorded message.
	Notify func()
}

// Process implements Sink.
func (m *MockSink) Process(ctx context.Context, frame face.Frame) pipeline.Snapshot {
	m.mu.Lock()
	m.frames = append(m.frames, frame)
	m.mu.Unlock()
	m.notify()
	return pipeline.Snapshot{}
}

// SetMotion implements Sink.
func (m *MockSink) SetMotion(magnitude float64) bool {
	m.mu.Lock()
	m.motions = append(m.motions, magnitude)
	m.mu.Unlock()
	m.notify()
	return true
}

// SetMotionVector implements Sink by recording the vector magnitude.
func (m *MockSink) SetMotionVector(x, y, z float64) bool {
	return m.SetMotion(math.Sqrt(x*x + y*y + z*z))
}

// MicrogameHit implements Sink.
func (m *MockSink) MicrogameHit() bool {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
	m.notify()
	return true
}

func (m *MockSink) notify() {
	if m.Notify != nil {
		m.Notify()
	}
}

// Frames returns the received frames.
func (m *MockSink) Frames() []face.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]face.Frame(nil), m.frames...)
}

// Motions returns the received magnitudes.
func (m *MockSink) Motions() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.motions...)
}

// Hits returns the number of hits received.
func (m *MockSink) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
