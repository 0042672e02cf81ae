package pipeline

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// tuner applies one string value to a config. It returns false when the
// value does not parse.
type tuner func(c *Config, v string) bool

// tuners maps tuning keys to config fields. Durations are in seconds.
var tuners = map[string]tuner{
	"ear_threshold":            floatKey(func(c *Config) *float64 { return &c.Eyes.Threshold }),
	"closed_duration":          durationKey(func(c *Config) *time.Duration { return &c.Eyes.ClosedDuration }),
	"use_eye_classifier":       boolKey(func(c *Config) *bool { return &c.Eyes.UseClassifier }),
	"eye_classifier_threshold": floatKey(func(c *Config) *float64 { return &c.Eyes.ClassifierThreshold }),
	"hide_delay":               durationKey(func(c *Config) *time.Duration { return &c.Overlay.HideDelay }),
	"show_delay":               durationKey(func(c *Config) *time.Duration { return &c.Overlay.ShowDelay }),
	"eye_smooth_window":        intKey(func(c *Config) *int { return &c.Eyes.SmoothWindow }),

	"tilt_threshold_deg": floatKey(func(c *Config) *float64 { return &c.Tilt.ThresholdDeg }),
	"tilt_hold":          durationKey(func(c *Config) *time.Duration { return &c.Tilt.Hold }),
	"tilt_cooldown":      durationKey(func(c *Config) *time.Duration { return &c.Tilt.Cooldown }),

	"gaze_enabled":         boolKey(func(c *Config) *bool { return &c.Gaze.Enabled }),
	"gaze_threshold":       floatKey(func(c *Config) *float64 { return &c.Gaze.Threshold }),
	"gaze_hold":            durationKey(func(c *Config) *time.Duration { return &c.Gaze.Hold }),
	"gaze_sigma_k":         floatKey(func(c *Config) *float64 { return &c.Gaze.SigmaK }),
	"gaze_use_calibration": boolKey(func(c *Config) *bool { return &c.Gaze.UseCalibration }),
	"gaze_smooth_window":   intKey(func(c *Config) *int { return &c.Gaze.SmoothWindow }),

	"yawn_threshold":            floatKey(func(c *Config) *float64 { return &c.Yawn.Threshold }),
	"use_mouth_classifier":      boolKey(func(c *Config) *bool { return &c.Yawn.UseClassifier }),
	"yawn_classifier_threshold": floatKey(func(c *Config) *float64 { return &c.Yawn.ClassifierThreshold }),
	"yawn_min_ratio":            floatKey(func(c *Config) *float64 { return &c.Yawn.MinRatio }),
	"yawn_min_hold":             durationKey(func(c *Config) *time.Duration { return &c.Yawn.MinHold }),
	"yawn_cooldown":             durationKey(func(c *Config) *time.Duration { return &c.Yawn.Cooldown }),
	"mouth_smooth_window":       intKey(func(c *Config) *int { return &c.Yawn.SmoothWindow }),

	"risk_enabled":   boolKey(func(c *Config) *bool { return &c.Risk.Enabled }),
	"risk_threshold": floatKey(func(c *Config) *float64 { return &c.Risk.Threshold }),
	"risk_window":    durationKey(func(c *Config) *time.Duration { return &c.Risk.Window }),
	"auto_adapt":     boolKey(func(c *Config) *bool { return &c.AutoAdapt }),

	"ideal_sleep_hours": floatKey(func(c *Config) *float64 { return &c.Sleep.IdealHours }),
	"last_sleep_hours": func(c *Config, v string) bool {
		f, ok := parseFloat(v)
		if !ok {
			return false
		}
		c.Sleep.SetLastSleep(f)
		return true
	},

	"alert_threshold":  intKey(func(c *Config) *int { return &c.Escalation.AlertThreshold }),
	"motion_threshold": floatKey(func(c *Config) *float64 { return &c.Escalation.Motion.Threshold }),
}

// adaptedKeys are the keys whose settings auto-adapt lowers.
var adaptedKeys = map[string]bool{
	"eye_classifier_threshold": true,
	"closed_duration":          true,
	"yawn_min_ratio":           true,
	"yawn_min_hold":            true,
	"gaze_hold":                true,
}

// TuningKeys returns every supported tuning key, sorted.
func TuningKeys() []string {
	keys := make([]string, 0, len(tuners))
	for k := range tuners {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Tune applies values by key to c and returns the keys it applied.
// Unknown keys and unparseable values are left alone.
func (c *Config) Tune(values map[string]string) []string {
	var applied []string
	for _, key := range TuningKeys() {
		v, ok := values[key]
		if !ok {
			continue
		}
		if tuners[key](c, v) {
			applied = append(applied, key)
		}
	}
	if len(applied) > 0 {
		c.Validate()
	}
	return applied
}

func parseFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func floatKey(field func(*Config) *float64) tuner {
	return func(c *Config, v string) bool {
		f, ok := parseFloat(v)
		if !ok || f <= 0 {
			return false
		}
		*field(c) = f
		return true
	}
}

// intKey accepts positive whole numbers only.
func intKey(field func(*Config) *int) tuner {
	return func(c *Config, v string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return false
		}
		*field(c) = n
		return true
	}
}

// durationKey accepts seconds ("1.5") or a Go duration ("1500ms").
func durationKey(field func(*Config) *time.Duration) tuner {
	return func(c *Config, v string) bool {
		if f, ok := parseFloat(v); ok {
			if f <= 0 {
				return false
			}
			*field(c) = time.Duration(math.Round(f * float64(time.Second)))
			return true
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d <= 0 {
			return false
		}
		*field(c) = d
		return true
	}
}

func boolKey(field func(*Config) *bool) tuner {
	return func(c *Config, v string) bool {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "yes", "checked":
			*field(c) = true
			return true
		case "off", "no":
			*field(c) = false
			return true
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false
		}
		*field(c) = b
		return true
	}
}
