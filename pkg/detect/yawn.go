package detect

import (
	"time"

	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/filter"
)

// Yawn detector defaults.
const (
	DefaultYawnThreshold            = 0.6
	DefaultMouthClassifierThreshold = 0.7
	DefaultYawnMinRatio             = 0.35
	DefaultYawnMinHold              = 500 * time.Millisecond
	DefaultYawnCooldown             = 3 * time.Second
	DefaultMouthSmoothWindow        = 6
	DefaultEyePopAnimation          = 1200 * time.Millisecond

	// YawnClass is the yawn index in multi-class mouth output.
	YawnClass = 3
)

// MouthLabels names the multi-class mouth outputs in order.
var MouthLabels = []string{"neutral", "open", "smile", "yawn"}

// YawnConfig tunes the yawn detector.
type YawnConfig struct {
	Threshold           float64       `yaml:"threshold"`            // Ratio mode: MOR above this qualifies
	UseClassifier       bool          `yaml:"use_classifier"`       // Prefer mouth classifier output
	ClassifierThreshold float64       `yaml:"classifier_threshold"` // Smoothed yawn probability at or above this qualifies
	MinRatio            float64       `yaml:"min_ratio"`            // MOR gate applied in both modes
	MinHold             time.Duration `yaml:"min_hold"`
	Cooldown            time.Duration `yaml:"cooldown"`
	SmoothWindow        int           `yaml:"smooth_window"`
	Animation           time.Duration `yaml:"animation"`
}

// DefaultYawnConfig returns the default yawn tuning.
func DefaultYawnConfig() YawnConfig {
	return YawnConfig{
		Threshold:           DefaultYawnThreshold,
		ClassifierThreshold: DefaultMouthClassifierThreshold,
		MinRatio:            DefaultYawnMinRatio,
		MinHold:             DefaultYawnMinHold,
		Cooldown:            DefaultYawnCooldown,
		SmoothWindow:        DefaultMouthSmoothWindow,
		Animation:           DefaultEyePopAnimation,
	}
}

// YawnState is the yawn detector's output for one frame.
type YawnState struct {
	Ratio          float64       `json:"ratio"`
	Prob           float64       `json:"prob"`
	Class          string        `json:"class,omitempty"`
	UsedClassifier bool          `json:"used_classifier"`
	Qualifying     bool          `json:"qualifying"`
	Held           time.Duration `json:"held"`
	Fired          bool          `json:"fired"`
	EyePop         bool          `json:"eye_pop"`
}

// YawnDetector fires once per sustained wide mouth opening.
type YawnDetector struct {
	cfg      YawnConfig
	scalar   *filter.Window
	vec      *filter.VecWindow
	hold     filter.HoldTimer
	cooldown *filter.Cooldown
	pop      *effects.Effect
}

// NewYawnDetector creates a yawn detector.
func NewYawnDetector(cfg YawnConfig) *YawnDetector {
	return &YawnDetector{
		cfg:      cfg,
		scalar:   filter.NewWindow(cfg.SmoothWindow),
		vec:      filter.NewVecWindow(cfg.SmoothWindow),
		cooldown: filter.NewCooldown(cfg.Cooldown),
		pop:      effects.NewEffect("eye-pop", cfg.Animation),
	}
}

// SetConfig replaces the tuning.
func (d *YawnDetector) SetConfig(cfg YawnConfig) {
	d.cfg = cfg
	d.scalar.SetSize(cfg.SmoothWindow)
	d.vec.SetSize(cfg.SmoothWindow)
	d.cooldown.Window = cfg.Cooldown
	d.pop.Duration = cfg.Animation
}

// Config returns the current tuning.
func (d *YawnDetector) Config() YawnConfig {
	return d.cfg
}

// Update processes one frame. probs is the raw mouth classifier output, or
// nil to use the mouth-open ratio alone. One or two values are a binary yawn
// model; longer vectors follow MouthLabels.
func (d *YawnDetector) Update(ratio float64, probs []float64, now time.Time) YawnState {
	s := YawnState{Ratio: ratio}

	if d.cfg.UseClassifier && len(probs) > 0 {
		s.UsedClassifier = true
		if len(probs) <= 2 {
			raw := probs[0]
			if len(probs) == 2 {
				raw = probs[1]
			}
			s.Prob = d.scalar.Push(raw)
			s.Qualifying = s.Prob >= d.cfg.ClassifierThreshold && ratio >= d.cfg.MinRatio
			s.Class = "no-yawn"
			if s.Qualifying {
				s.Class = "yawn"
			}
		} else {
			smooth := d.vec.Push(probs)
			if len(smooth) > YawnClass {
				s.Prob = smooth[YawnClass]
			}
			s.Qualifying = s.Prob >= d.cfg.ClassifierThreshold && ratio >= d.cfg.MinRatio
			s.Class = topLabel(smooth)
			if s.Qualifying {
				s.Class = "yawn"
			}
		}
	} else {
		s.Qualifying = ratio > d.cfg.Threshold && ratio >= d.cfg.MinRatio
	}

	if s.Qualifying {
		s.Held = d.hold.Hold(now)
		if s.Held >= d.cfg.MinHold && !d.pop.Active(now) && d.cooldown.Ready(now) {
			d.pop.Start(now)
			d.cooldown.Fire(now)
			d.hold.Reset()
			s.Fired = true
		}
	} else {
		d.hold.Reset()
	}

	s.EyePop = d.pop.Active(now)
	return s
}

func topLabel(p []float64) string {
	idx := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[idx] {
			idx = i
		}
	}
	if idx < len(MouthLabels) {
		return MouthLabels[idx]
	}
	return MouthLabels[0]
}

// NoFace clears the hold when no face is tracked.
func (d *YawnDetector) NoFace() {
	d.hold.Reset()
}

// FiredWithin reports whether a yawn fired less than window before now.
func (d *YawnDetector) FiredWithin(now time.Time, window time.Duration) bool {
	return d.cooldown.FiredWithin(now, window)
}

// Reset clears smoothing, hold, cooldown and animation.
func (d *YawnDetector) Reset() {
	d.scalar.Reset()
	d.vec.Reset()
	d.hold.Reset()
	d.cooldown.Reset()
	d.pop.Reset()
}
