package detect

import (
	"math"
	"time"

	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/filter"
)

// Tilt detector defaults.
const (
	DefaultTiltThresholdDeg = 12.0
	DefaultTiltHold         = 1500 * time.Millisecond
	DefaultTiltCooldown     = 2500 * time.Millisecond
	DefaultHandAnimation    = 1500 * time.Millisecond
)

// Side is the direction of a head tilt.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

// String returns "left", "right" or "".
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return ""
	}
}

// MarshalText encodes the side for JSON snapshots.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TiltConfig tunes the head-tilt detector.
type TiltConfig struct {
	ThresholdDeg float64       `yaml:"threshold_deg"`
	Hold         time.Duration `yaml:"hold"`
	Cooldown     time.Duration `yaml:"cooldown"`
	Animation    time.Duration `yaml:"animation"`
}

// DefaultTiltConfig returns the default tilt tuning.
func DefaultTiltConfig() TiltConfig {
	return TiltConfig{
		ThresholdDeg: DefaultTiltThresholdDeg,
		Hold:         DefaultTiltHold,
		Cooldown:     DefaultTiltCooldown,
		Animation:    DefaultHandAnimation,
	}
}

// TiltState is the tilt detector's output for one frame.
type TiltState struct {
	Side  Side          `json:"side"`
	Held  time.Duration `json:"held"`
	Fired bool          `json:"fired"`
	Hand  bool          `json:"hand"` // Hand animation running
}

// TiltDetector fires once when the head stays tilted to one side with the
// eyes closed for the hold duration.
type TiltDetector struct {
	cfg      TiltConfig
	side     Side
	hold     filter.HoldTimer
	cooldown *filter.Cooldown
	hand     *effects.Effect
	count    int
}

// NewTiltDetector creates a tilt detector.
func NewTiltDetector(cfg TiltConfig) *TiltDetector {
	return &TiltDetector{
		cfg:      cfg,
		cooldown: filter.NewCooldown(cfg.Cooldown),
		hand:     effects.NewEffect("hand", cfg.Animation),
	}
}

// SetConfig replaces the tuning.
func (d *TiltDetector) SetConfig(cfg TiltConfig) {
	d.cfg = cfg
	d.cooldown.Window = cfg.Cooldown
	d.hand.Duration = cfg.Animation
}

// Config returns the current tuning.
func (d *TiltDetector) Config() TiltConfig {
	return d.cfg
}

// SideFor classifies a roll angle in radians against a threshold in degrees.
func SideFor(roll, thresholdDeg float64) Side {
	thr := thresholdDeg * math.Pi / 180
	switch {
	case roll > thr:
		return SideRight
	case roll < -thr:
		return SideLeft
	default:
		return SideNone
	}
}

// Update processes one frame.
func (d *TiltDetector) Update(roll float64, eyesClosed bool, now time.Time) TiltState {
	side := SideFor(roll, d.cfg.ThresholdDeg)
	if side == SideNone || !eyesClosed {
		d.side = SideNone
		d.hold.Reset()
		return TiltState{Side: side, Hand: d.hand.Active(now)}
	}

	// Switching sides restarts the hold.
	if side != d.side {
		d.side = side
		d.hold.Reset()
	}
	held := d.hold.Hold(now)
	s := TiltState{Side: side, Held: held}

	if held >= d.cfg.Hold && !d.hand.Active(now) && d.cooldown.Ready(now) {
		d.hand.Start(now)
		d.cooldown.Fire(now)
		d.count++
		d.hold.Reset()
		d.side = SideNone
		s.Fired = true
	}
	s.Hand = d.hand.Active(now)
	return s
}

// FiredWithin reports whether a tilt fired less than window before now.
func (d *TiltDetector) FiredWithin(now time.Time, window time.Duration) bool {
	return d.cooldown.FiredWithin(now, window)
}

// Count returns the number of tilt events since the last reset.
func (d *TiltDetector) Count() int {
	return d.count
}

// Reset clears the hold, cooldown, animation and event count.
func (d *TiltDetector) Reset() {
	d.side = SideNone
	d.hold.Reset()
	d.cooldown.Reset()
	d.hand.Reset()
	d.count = 0
}
