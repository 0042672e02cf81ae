package pipeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-wraith/pkg/classify"
	"github.com/teslashibe/go-wraith/pkg/detect"
	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/escalation"
	"github.com/teslashibe/go-wraith/pkg/risk"
	"github.com/teslashibe/go-wraith/pkg/sleep"
)

// ErrInvalidConfig is returned when a config file cannot be decoded.
var ErrInvalidConfig = errors.New("pipeline: invalid config")

// Config is the complete tuning of the pipeline.
type Config struct {
	Eyes       detect.EyeConfig     `yaml:"eyes"`
	Overlay    detect.OverlayConfig `yaml:"overlay"`
	Tilt       detect.TiltConfig    `yaml:"tilt"`
	Gaze       detect.GazeConfig    `yaml:"gaze"`
	Yawn       detect.YawnConfig    `yaml:"yawn"`
	Risk       risk.Config          `yaml:"risk"`
	AutoAdapt  bool                 `yaml:"auto_adapt"`
	Sleep      sleep.Profile        `yaml:"sleep"`
	Escalation escalation.Config    `yaml:"escalation"`
	Classify   classify.Config      `yaml:"classify"`

	SirenSound   string        `yaml:"siren_sound"`
	SirenMaxPlay time.Duration `yaml:"siren_max_play"`
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		Eyes:         detect.DefaultEyeConfig(),
		Overlay:      detect.DefaultOverlayConfig(),
		Tilt:         detect.DefaultTiltConfig(),
		Gaze:         detect.DefaultGazeConfig(),
		Yawn:         detect.DefaultYawnConfig(),
		Risk:         risk.DefaultConfig(),
		Sleep:        sleep.DefaultProfile(),
		Escalation:   escalation.DefaultConfig(),
		Classify:     classify.DefaultConfig(),
		SirenSound:   "siren",
		SirenMaxPlay: effects.DefaultMaxPlay,
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("pipeline: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Validate()
	return cfg, nil
}

// Validate replaces missing or non-finite values with defaults and clamps
// each setting into its usable range.
func (c *Config) Validate() {
	d := DefaultConfig()

	fixFloat(&c.Eyes.Threshold, d.Eyes.Threshold, 0.01, 1)
	fixDuration(&c.Eyes.ClosedDuration, d.Eyes.ClosedDuration)
	fixFloat(&c.Eyes.ClassifierThreshold, d.Eyes.ClassifierThreshold, 0.01, 1)
	fixInt(&c.Eyes.SmoothWindow, d.Eyes.SmoothWindow)

	fixDuration(&c.Overlay.HideDelay, d.Overlay.HideDelay)
	fixDuration(&c.Overlay.ShowDelay, d.Overlay.ShowDelay)

	fixFloat(&c.Tilt.ThresholdDeg, d.Tilt.ThresholdDeg, 1, 89)
	fixDuration(&c.Tilt.Hold, d.Tilt.Hold)
	fixDuration(&c.Tilt.Cooldown, d.Tilt.Cooldown)
	fixDuration(&c.Tilt.Animation, d.Tilt.Animation)

	fixFloat(&c.Gaze.Threshold, d.Gaze.Threshold, 0.01, 1)
	fixDuration(&c.Gaze.Hold, d.Gaze.Hold)
	fixFloat(&c.Gaze.SigmaK, d.Gaze.SigmaK, 0.1, 10)
	fixInt(&c.Gaze.SmoothWindow, d.Gaze.SmoothWindow)
	fixFloat(&c.Gaze.RollGateDeg, d.Gaze.RollGateDeg, 1, 90)
	fixDuration(&c.Gaze.Cooldown, d.Gaze.Cooldown)

	fixFloat(&c.Yawn.Threshold, d.Yawn.Threshold, 0.01, 5)
	fixFloat(&c.Yawn.ClassifierThreshold, d.Yawn.ClassifierThreshold, 0.01, 1)
	fixFloat(&c.Yawn.MinRatio, d.Yawn.MinRatio, 0.01, 5)
	fixDuration(&c.Yawn.MinHold, d.Yawn.MinHold)
	fixDuration(&c.Yawn.Cooldown, d.Yawn.Cooldown)
	fixInt(&c.Yawn.SmoothWindow, d.Yawn.SmoothWindow)
	fixDuration(&c.Yawn.Animation, d.Yawn.Animation)

	fixFloat(&c.Risk.Threshold, d.Risk.Threshold, 0.01, 0.99)
	fixDuration(&c.Risk.Window, d.Risk.Window)
	c.Risk.Window = max(c.Risk.Window, risk.MinWindow)

	fixFloat(&c.Sleep.IdealHours, d.Sleep.IdealHours, 1, 16)
	if h := c.Sleep.LastSleepHours; h != nil && (math.IsNaN(*h) || math.IsInf(*h, 0) || *h < 0) {
		c.Sleep.LastSleepHours = nil
	}

	fixInt(&c.Escalation.AlertThreshold, d.Escalation.AlertThreshold)
	fixDuration(&c.Escalation.RecentWindow, d.Escalation.RecentWindow)
	fixInt(&c.Escalation.Motion.Samples, d.Escalation.Motion.Samples)
	fixFloat(&c.Escalation.Motion.Threshold, d.Escalation.Motion.Threshold, 0.001, 100)
	fixInt(&c.Escalation.Microgame.Targets, d.Escalation.Microgame.Targets)
	fixDuration(&c.Escalation.Microgame.Interval, d.Escalation.Microgame.Interval)
	fixDuration(&c.Escalation.Microgame.Visible, d.Escalation.Microgame.Visible)
	fixDuration(&c.Escalation.Microgame.Duration, d.Escalation.Microgame.Duration)
	fixInt(&c.Escalation.Microgame.PassHits, d.Escalation.Microgame.PassHits)
	c.Escalation.Microgame.PassHits = min(c.Escalation.Microgame.PassHits, c.Escalation.Microgame.Targets)

	if c.SirenSound == "" {
		c.SirenSound = d.SirenSound
	}
	fixDuration(&c.SirenMaxPlay, d.SirenMaxPlay)
}

func fixFloat(v *float64, def, lo, hi float64) {
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v == 0 {
		*v = def
	}
	*v = math.Max(lo, math.Min(hi, *v))
}

func fixDuration(v *time.Duration, def time.Duration) {
	if *v <= 0 {
		*v = def
	}
}

func fixInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// thresholds extracts the settings auto-adapt lowers.
func (c Config) thresholds() risk.Thresholds {
	return risk.Thresholds{
		EyeClassifierThreshold: c.Eyes.ClassifierThreshold,
		ClosedDuration:         c.Eyes.ClosedDuration,
		YawnMinRatio:           c.Yawn.MinRatio,
		YawnMinHold:            c.Yawn.MinHold,
		GazeHold:               c.Gaze.Hold,
	}
}

func (c *Config) setThresholds(t risk.Thresholds) {
	c.Eyes.ClassifierThreshold = t.EyeClassifierThreshold
	c.Eyes.ClosedDuration = t.ClosedDuration
	c.Yawn.MinRatio = t.YawnMinRatio
	c.Yawn.MinHold = t.YawnMinHold
	c.Gaze.Hold = t.GazeHold
}
