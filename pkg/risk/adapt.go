package risk

import (
	"math"
	"time"
)

// AdaptInterval rate-limits threshold adaptation.
const AdaptInterval = 500 * time.Millisecond

// Thresholds are the detector settings lowered as sleep risk rises.
type Thresholds struct {
	EyeClassifierThreshold float64       `json:"eye_classifier_threshold"`
	ClosedDuration         time.Duration `json:"closed_duration"`
	YawnMinRatio           float64       `json:"yawn_min_ratio"`
	YawnMinHold            time.Duration `json:"yawn_min_hold"`
	GazeHold               time.Duration `json:"gaze_hold"`
}

// Adapt lowers the baseline by risk in [0,1], clamping each setting and
// rounding it to the precision the tuning surface displays.
func Adapt(base Thresholds, risk float64) Thresholds {
	risk = math.Max(0, math.Min(1, risk))
	return Thresholds{
		EyeClassifierThreshold: round(clamp(base.EyeClassifierThreshold-0.10*risk, 0.30, 0.90), 100),
		ClosedDuration:         seconds(round(clamp(base.ClosedDuration.Seconds()-0.6*risk, 0.5, 3.0), 10)),
		YawnMinRatio:           round(clamp(base.YawnMinRatio-0.08*risk, 0.20, 0.70), 100),
		YawnMinHold:            seconds(round(clamp(base.YawnMinHold.Seconds()-0.3*risk, 0.1, 2.0), 10)),
		GazeHold:               seconds(clamp(base.GazeHold.Seconds()-0.4*risk, 0.5, 3.0)),
	}
}

// Adapter applies Adapt at most twice per second against a baseline captured
// when it was enabled.
type Adapter struct {
	baseline Thresholds
	enabled  bool
	last     time.Time
	applied  bool
}

// Enable captures base as the baseline and starts adapting.
func (a *Adapter) Enable(base Thresholds) {
	a.baseline = base
	a.enabled = true
	a.applied = false
}

// Disable stops adapting and returns the baseline to restore.
func (a *Adapter) Disable() (Thresholds, bool) {
	if !a.enabled {
		return Thresholds{}, false
	}
	a.enabled = false
	return a.baseline, true
}

// Enabled reports whether adaptation is on.
func (a *Adapter) Enabled() bool {
	return a.enabled
}

// Baseline returns the captured baseline.
func (a *Adapter) Baseline() Thresholds {
	return a.baseline
}

// Rebase replaces the baseline, used when a setting is tuned while adapting.
func (a *Adapter) Rebase(base Thresholds) {
	a.baseline = base
}

// Apply returns adapted thresholds for risk at now, or false when disabled
// or rate-limited.
func (a *Adapter) Apply(now time.Time, risk float64) (Thresholds, bool) {
	if !a.enabled {
		return Thresholds{}, false
	}
	if a.applied && now.Sub(a.last) < AdaptInterval {
		return Thresholds{}, false
	}
	a.last = now
	a.applied = true
	return Adapt(a.baseline, risk), true
}

// Reset forgets the rate limit. The baseline and enabled state are kept.
func (a *Adapter) Reset() {
	a.applied = false
	a.last = time.Time{}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v, scale float64) float64 {
	return math.Round(v*scale) / scale
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
