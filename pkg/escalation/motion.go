package escalation

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/teslashibe/go-wraith/pkg/filter"
)

// Motion gate defaults.
const (
	DefaultMotionSamples   = 10
	DefaultMotionThreshold = 0.5
)

// Override forces the motion gate regardless of the sensor.
type Override int

const (
	OverrideNone Override = iota
	OverrideMoving
	OverrideStopped
)

// String returns the override mode name.
func (o Override) String() string {
	switch o {
	case OverrideMoving:
		return "moving"
	case OverrideStopped:
		return "stopped"
	default:
		return "none"
	}
}

// MarshalText encodes the override for JSON snapshots.
func (o Override) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ParseOverride parses "none", "moving" or "stopped".
func ParseOverride(s string) (Override, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "auto":
		return OverrideNone, nil
	case "moving":
		return OverrideMoving, nil
	case "stopped", "stop":
		return OverrideStopped, nil
	}
	return OverrideNone, fmt.Errorf("escalation: unknown override %q", s)
}

// MotionConfig tunes the motion gate.
type MotionConfig struct {
	Samples   int     `yaml:"samples"`
	Threshold float64 `yaml:"threshold"`
}

// DefaultMotionConfig returns the default motion tuning.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{Samples: DefaultMotionSamples, Threshold: DefaultMotionThreshold}
}

// MotionGate decides whether the vehicle is moving from a trailing mean of
// acceleration magnitudes. Samples may arrive from any goroutine; the
// latest sample wins.
type MotionGate struct {
	mu        sync.Mutex
	threshold float64
	window    *filter.Window
	override  Override
	sensed    bool
}

// NewMotionGate creates a motion gate.
func NewMotionGate(cfg MotionConfig) *MotionGate {
	if cfg.Samples < 1 {
		cfg.Samples = DefaultMotionSamples
	}
	return &MotionGate{threshold: cfg.Threshold, window: filter.NewWindow(cfg.Samples)}
}

// Push adds an acceleration magnitude and returns the sensed state.
func (g *MotionGate) Push(magnitude float64) bool {
	if math.IsNaN(magnitude) || math.IsInf(magnitude, 0) {
		return g.Sensed()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sensed = g.window.Push(math.Abs(magnitude)) > g.threshold
	return g.sensed
}

// PushVector adds an acceleration sample given by its components.
func (g *MotionGate) PushVector(x, y, z float64) bool {
	return g.Push(math.Sqrt(x*x + y*y + z*z))
}

// SetOverride forces the gate. OverrideNone returns control to the sensor.
func (g *MotionGate) SetOverride(o Override) {
	g.mu.Lock()
	g.override = o
	g.mu.Unlock()
}

// Override returns the current override mode.
func (g *MotionGate) Override() Override {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.override
}

// Sensed reports the sensor decision ignoring any override.
func (g *MotionGate) Sensed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sensed
}

// Moving reports the effective motion state.
func (g *MotionGate) Moving() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.override {
	case OverrideMoving:
		return true
	case OverrideStopped:
		return false
	}
	return g.sensed
}

// SetConfig changes the tuning. Shrinking the window drops old samples.
func (g *MotionGate) SetConfig(cfg MotionConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threshold = cfg.Threshold
	g.window.SetSize(cfg.Samples)
}

// Reset clears samples. The override is kept.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	g.window.Reset()
	g.sensed = false
	g.mu.Unlock()
}
