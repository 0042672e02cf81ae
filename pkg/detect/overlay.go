package detect

import (
	"math"
	"time"

	"github.com/teslashibe/go-wraith/pkg/filter"
)

// Overlay defaults.
const (
	DefaultHideDelay = time.Second
	DefaultShowDelay = 2 * time.Second
	OverlayBlend     = 0.12
	OverlayVisible   = 0.18
)

// OverlayConfig tunes the face overlay.
type OverlayConfig struct {
	HideDelay time.Duration `yaml:"hide_delay"` // Keep showing this long after eyes reopen
	ShowDelay time.Duration `yaml:"show_delay"` // Classifier mode: closed time before first showing
}

// DefaultOverlayConfig returns the default overlay tuning.
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{HideDelay: DefaultHideDelay, ShowDelay: DefaultShowDelay}
}

// OverlayState is the overlay's output for one frame.
type OverlayState struct {
	Target  float64 `json:"target"`
	Alpha   float64 `json:"alpha"`
	Visible bool    `json:"visible"`
	Rising  bool    `json:"-"` // Became visible this frame
}

// Overlay decides whether the face overlay should be shown and fades its
// alpha toward that target. Each rising edge of visibility is one drowsy event.
type Overlay struct {
	cfg        OverlayConfig
	showing    bool
	lastClosed time.Time
	hasClosed  bool
	alpha      float64
	edge       filter.EdgeDetector
}

// NewOverlay creates an overlay.
func NewOverlay(cfg OverlayConfig) *Overlay {
	return &Overlay{cfg: cfg}
}

// SetConfig replaces the tuning.
func (o *Overlay) SetConfig(cfg OverlayConfig) {
	o.cfg = cfg
}

// Config returns the current tuning.
func (o *Overlay) Config() OverlayConfig {
	return o.cfg
}

// Update processes one frame with a tracked face.
func (o *Overlay) Update(closed bool, accum time.Duration, classifierMode bool, now time.Time) OverlayState {
	if closed {
		o.lastClosed = now
		o.hasClosed = true
	}
	recent := o.hasClosed && now.Sub(o.lastClosed) <= o.cfg.HideDelay

	show := false
	if classifierMode {
		switch {
		case closed:
			// Compare at display precision so the overlay never appears before
			// the shown closed time reaches the delay.
			shown := math.Round(accum.Seconds()*100) / 100
			if shown >= o.cfg.ShowDelay.Seconds() {
				show = true
				o.showing = true
			}
		case o.showing && recent:
			show = true
		default:
			o.showing = false
		}
	} else {
		show = closed || recent
	}

	target := 0.0
	if show {
		target = 1
	}
	return o.step(target)
}

// NoFace hides the overlay and forgets the last closure.
func (o *Overlay) NoFace() OverlayState {
	o.showing = false
	o.hasClosed = false
	o.lastClosed = time.Time{}
	return o.step(0)
}

func (o *Overlay) step(target float64) OverlayState {
	o.alpha += (target - o.alpha) * OverlayBlend
	o.alpha = math.Max(0, math.Min(1, o.alpha))
	visible := o.alpha >= OverlayVisible
	return OverlayState{
		Target:  target,
		Alpha:   o.alpha,
		Visible: visible,
		Rising:  o.edge.Update(visible) == filter.EdgeRising,
	}
}

// Reset hides the overlay immediately.
func (o *Overlay) Reset() {
	o.showing = false
	o.hasClosed = false
	o.lastClosed = time.Time{}
	o.alpha = 0
	o.edge.Reset()
}
