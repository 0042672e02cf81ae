package detect

import (
	"time"

	"github.com/teslashibe/go-wraith/pkg/filter"
)

// Eye tracker defaults.
const (
	DefaultEyeThreshold           = 0.25
	DefaultClosedDuration         = 1500 * time.Millisecond
	DefaultEyeClassifierThreshold = 0.6
	DefaultEyeSmoothWindow        = 5

	// NoFaceDecay is subtracted from the accumulator on frames without a face.
	NoFaceDecay = 50 * time.Millisecond
)

// EyeConfig tunes the eye-closure tracker.
type EyeConfig struct {
	Threshold           float64       `yaml:"threshold"`            // EAR below this is closed
	ClosedDuration      time.Duration `yaml:"closed_duration"`      // Accumulated closure that counts as drowsy
	UseClassifier       bool          `yaml:"use_classifier"`       // Prefer classifier probabilities when available
	ClassifierThreshold float64       `yaml:"classifier_threshold"` // Mean smoothed probability at or above this is closed
	SmoothWindow        int           `yaml:"smooth_window"`        // Classifier probability window per eye
}

// DefaultEyeConfig returns the default eye tracker tuning.
func DefaultEyeConfig() EyeConfig {
	return EyeConfig{
		Threshold:           DefaultEyeThreshold,
		ClosedDuration:      DefaultClosedDuration,
		ClassifierThreshold: DefaultEyeClassifierThreshold,
		SmoothWindow:        DefaultEyeSmoothWindow,
	}
}

// EyeState is the eye tracker's output for one frame.
type EyeState struct {
	Ratio          float64       `json:"ratio"`
	ProbLeft       float64       `json:"prob_left"`
	ProbRight      float64       `json:"prob_right"`
	UsedClassifier bool          `json:"used_classifier"`
	Closed         bool          `json:"closed"`
	Accumulated    time.Duration `json:"accumulated"`
	Drowsy         bool          `json:"drowsy"`
	Edge           filter.Edge   `json:"-"`
}

// EyeTracker accumulates eye closure time and reports a debounced drowsy state.
//
// The accumulator grows by the full frame interval while closed and decays at
// half rate while open, never dropping below zero.
type EyeTracker struct {
	cfg   EyeConfig
	probL *filter.Window
	probR *filter.Window
	accum time.Duration
	edge  filter.EdgeDetector
	last  EyeState
}

// NewEyeTracker creates an eye tracker.
func NewEyeTracker(cfg EyeConfig) *EyeTracker {
	return &EyeTracker{
		cfg:   cfg,
		probL: filter.NewWindow(cfg.SmoothWindow),
		probR: filter.NewWindow(cfg.SmoothWindow),
	}
}

// Config returns the current tuning.
func (t *EyeTracker) Config() EyeConfig {
	return t.cfg
}

// SetConfig replaces the tuning. Switching between ratio and classifier mode
// resets the accumulator.
func (t *EyeTracker) SetConfig(cfg EyeConfig) {
	modeChanged := cfg.UseClassifier != t.cfg.UseClassifier
	t.cfg = cfg
	t.probL.SetSize(cfg.SmoothWindow)
	t.probR.SetSize(cfg.SmoothWindow)
	if modeChanged {
		t.Reset()
	}
}

// Update processes one frame. ratio is the mean EAR of both eyes; probs holds
// raw closed probabilities for the left and right eye, or nil when no
// classifier result is available this frame.
func (t *EyeTracker) Update(ratio float64, probs *[2]float64, dt time.Duration) EyeState {
	if dt < 0 {
		dt = 0
	}
	s := EyeState{Ratio: ratio}

	if t.cfg.UseClassifier && probs != nil {
		s.ProbLeft = t.probL.Push(probs[0])
		s.ProbRight = t.probR.Push(probs[1])
		s.UsedClassifier = true
		s.Closed = (s.ProbLeft+s.ProbRight)/2 >= t.cfg.ClassifierThreshold
	} else {
		s.Closed = ratio < t.cfg.Threshold
	}

	if s.Closed {
		t.accum += dt
	} else {
		t.accum = max(0, t.accum-dt/2)
	}

	return t.finish(s)
}

// NoFace decays the accumulator when no face is tracked.
func (t *EyeTracker) NoFace() EyeState {
	t.accum = max(0, t.accum-NoFaceDecay)
	return t.finish(EyeState{})
}

func (t *EyeTracker) finish(s EyeState) EyeState {
	s.Accumulated = t.accum
	s.Drowsy = t.accum >= t.cfg.ClosedDuration
	s.Edge = t.edge.Update(s.Drowsy)
	t.last = s
	return s
}

// Accumulated returns the current closure accumulator.
func (t *EyeTracker) Accumulated() time.Duration {
	return t.accum
}

// Last returns the most recent state.
func (t *EyeTracker) Last() EyeState {
	return t.last
}

// Reset clears the accumulator, smoothing windows and drowsy state.
func (t *EyeTracker) Reset() {
	t.accum = 0
	t.probL.Reset()
	t.probR.Reset()
	t.edge.Reset()
	t.last = EyeState{}
}
