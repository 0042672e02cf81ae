package detect

import (
	"math"
	"time"

	"github.com/teslashibe/go-wraith/pkg/effects"
	"github.com/teslashibe/go-wraith/pkg/face"
	"github.com/teslashibe/go-wraith/pkg/filter"
)

// Gaze detector defaults.
const (
	DefaultGazeThreshold    = 0.45
	DefaultGazeHold         = 1200 * time.Millisecond
	DefaultGazeSigmaK       = 2.0
	DefaultGazeSmoothWindow = 5
	DefaultGazeRollGateDeg  = 10.0
	DefaultGazeCooldown     = 5000 * time.Millisecond

	GazeMeanRate         = 0.02
	GazeVarRate          = 0.02
	GazeOnlineFloor      = 0.03
	GazeCalibrationFloor = 0.05
	GazeCalibrationBurst = time.Second
	GazeMinSamples       = 8

	SkullIn  = 320 * time.Millisecond
	SkullOut = 360 * time.Millisecond
)

// Calibration messages shown to the driver.
const (
	MsgGazeCalibrated  = "Gaze calibrated"
	MsgGazeCalibFailed = "Calibration failed: not enough samples"
)

// GazeConfig tunes the gaze-drift detector.
type GazeConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Threshold      float64       `yaml:"threshold"`       // Uncalibrated absolute threshold per axis
	Hold           time.Duration `yaml:"hold"`            // Drift must hold this long to activate
	SigmaK         float64       `yaml:"sigma_k"`         // Calibrated z-score threshold
	SmoothWindow   int           `yaml:"smooth_window"`   // Trailing gaze window
	RollGateDeg    float64       `yaml:"roll_gate_deg"`   // Ignore drift when the head is rolled more than this
	Cooldown       time.Duration `yaml:"cooldown"`        // Minimum time between fires
	UseCalibration bool          `yaml:"use_calibration"` // Z-score mode when a profile exists
}

// DefaultGazeConfig returns the default gaze tuning.
func DefaultGazeConfig() GazeConfig {
	return GazeConfig{
		Enabled:      true,
		Threshold:    DefaultGazeThreshold,
		Hold:         DefaultGazeHold,
		SigmaK:       DefaultGazeSigmaK,
		SmoothWindow: DefaultGazeSmoothWindow,
		RollGateDeg:  DefaultGazeRollGateDeg,
		Cooldown:     DefaultGazeCooldown,
	}
}

// GazeProfile is a gaze baseline: mean and standard deviation per axis.
type GazeProfile struct {
	X0    float64   `json:"x0"`
	Y0    float64   `json:"y0"`
	SX    float64   `json:"sx"`
	SY    float64   `json:"sy"`
	Valid bool      `json:"valid"`
	At    time.Time `json:"at"`
}

// CalibrationResult reports the end of a calibration burst.
type CalibrationResult struct {
	OK      bool        `json:"ok"`
	Samples int         `json:"samples"`
	Message string      `json:"message"`
	Profile GazeProfile `json:"profile"`
}

// GazeState is the gaze detector's output for one frame.
type GazeState struct {
	Available   bool               `json:"available"`
	X           float64            `json:"x"`
	Y           float64            `json:"y"`
	Drift       bool               `json:"drift"`
	Held        time.Duration      `json:"held"`
	Active      bool               `json:"active"`
	Fired       bool               `json:"fired"`
	Calibrating bool               `json:"calibrating"`
	Skull       effects.Phase      `json:"-"`
	Calibration *CalibrationResult `json:"-"` // Set on the frame a burst completes
}

// GazeDetector turns a smoothed gaze vector into a debounced drift state.
type GazeDetector struct {
	cfg      GazeConfig
	smooth   *filter.VecWindow
	hold     filter.HoldTimer
	active   bool
	edge     filter.EdgeDetector
	cooldown *filter.Cooldown
	skull    *effects.Effect
	profile  GazeProfile

	calibrating bool
	calibStart  time.Time
	samples     [][2]float64
}

// NewGazeDetector creates a gaze detector.
func NewGazeDetector(cfg GazeConfig) *GazeDetector {
	return &GazeDetector{
		cfg:      cfg,
		smooth:   filter.NewVecWindow(cfg.SmoothWindow),
		cooldown: filter.NewCooldown(cfg.Cooldown),
		skull:    effects.NewHeldEffect("skull", SkullIn, SkullOut),
	}
}

// SetConfig replaces the tuning. Toggling calibration mode or disabling the
// detector resets its drift state.
func (d *GazeDetector) SetConfig(cfg GazeConfig) {
	reset := cfg.UseCalibration != d.cfg.UseCalibration || cfg.Enabled != d.cfg.Enabled
	d.cfg = cfg
	d.smooth.SetSize(cfg.SmoothWindow)
	d.cooldown.Window = cfg.Cooldown
	if reset {
		d.clearDrift()
		d.smooth.Reset()
	}
}

// Config returns the current tuning.
func (d *GazeDetector) Config() GazeConfig {
	return d.cfg
}

// Profile returns the current calibration profile.
func (d *GazeDetector) Profile() GazeProfile {
	return d.profile
}

// StartCalibration begins a calibration burst at now. Samples collected over
// the next second replace the profile if there are enough of them.
func (d *GazeDetector) StartCalibration(now time.Time) {
	d.calibrating = true
	d.calibStart = now
	d.samples = d.samples[:0]
}

// Calibrating reports whether a burst is in progress.
func (d *GazeDetector) Calibrating() bool {
	return d.calibrating
}

// Update processes one frame with an available gaze.
func (d *GazeDetector) Update(g face.Gaze, roll float64, eyesClosed bool, now time.Time) GazeState {
	if !d.cfg.Enabled {
		return d.Disabled()
	}

	avg := d.smooth.Push([]float64{g.X, g.Y})
	gx, gy := avg[0], avg[1]
	s := GazeState{Available: true, X: gx, Y: gy}

	if d.calibrating {
		s.Calibration = d.sample(gx, gy, now)
	}

	gated := !eyesClosed && math.Abs(roll) < d.cfg.RollGateDeg*math.Pi/180

	if d.useCalibration() {
		p := &d.profile
		zx := math.Abs(gx-p.X0) / math.Max(GazeCalibrationFloor, p.SX)
		zy := math.Abs(gy-p.Y0) / math.Max(GazeCalibrationFloor, p.SY)
		s.Drift = (zx >= d.cfg.SigmaK || zy >= d.cfg.SigmaK) && gated

		// Track slow changes in the baseline while looking ahead.
		if !s.Drift && gated {
			p.X0 = (1-GazeMeanRate)*p.X0 + GazeMeanRate*gx
			p.Y0 = (1-GazeMeanRate)*p.Y0 + GazeMeanRate*gy
			dx, dy := gx-p.X0, gy-p.Y0
			p.SX = math.Max(GazeOnlineFloor, math.Sqrt(p.SX*p.SX*(1-GazeVarRate)+GazeVarRate*dx*dx))
			p.SY = math.Max(GazeOnlineFloor, math.Sqrt(p.SY*p.SY*(1-GazeVarRate)+GazeVarRate*dy*dy))
		}
	} else {
		s.Drift = (math.Abs(gx) >= d.cfg.Threshold || math.Abs(gy) >= d.cfg.Threshold) && gated
	}

	if s.Drift {
		s.Held = d.hold.Hold(now)
		if s.Held >= d.cfg.Hold {
			d.active = true
		}
	} else {
		d.hold.Reset()
		d.active = false
	}
	s.Active = d.active

	if d.edge.Update(d.active) == filter.EdgeRising && !d.skull.Active(now) && d.cooldown.Ready(now) {
		d.skull.Start(now)
		d.cooldown.Fire(now)
		s.Fired = true
	}

	s.Calibrating = d.calibrating
	s.Skull = d.skull.Phase(now)
	return s
}

func (d *GazeDetector) useCalibration() bool {
	return d.cfg.UseCalibration && d.profile.Valid && d.profile.SX > 0 && d.profile.SY > 0
}

func (d *GazeDetector) sample(gx, gy float64, now time.Time) *CalibrationResult {
	d.samples = append(d.samples, [2]float64{gx, gy})
	if now.Sub(d.calibStart) < GazeCalibrationBurst {
		return nil
	}
	d.calibrating = false

	n := len(d.samples)
	if n < GazeMinSamples {
		return &CalibrationResult{Samples: n, Message: MsgGazeCalibFailed, Profile: d.profile}
	}

	var mx, my float64
	for _, s := range d.samples {
		mx += s[0]
		my += s[1]
	}
	mx /= float64(n)
	my /= float64(n)

	var vx, vy float64
	for _, s := range d.samples {
		vx += (s[0] - mx) * (s[0] - mx)
		vy += (s[1] - my) * (s[1] - my)
	}

	d.profile = GazeProfile{
		X0:    mx,
		Y0:    my,
		SX:    math.Max(GazeCalibrationFloor, math.Sqrt(vx/float64(n))),
		SY:    math.Max(GazeCalibrationFloor, math.Sqrt(vy/float64(n))),
		Valid: true,
		At:    now,
	}
	return &CalibrationResult{OK: true, Samples: n, Message: MsgGazeCalibrated, Profile: d.profile}
}

// Unavailable handles a frame where gaze could not be measured.
func (d *GazeDetector) Unavailable(now time.Time) GazeState {
	d.clearDrift()
	return GazeState{Calibrating: d.calibrating, Skull: d.skull.Phase(now)}
}

// Disabled handles a frame while gaze detection is switched off.
func (d *GazeDetector) Disabled() GazeState {
	d.clearDrift()
	d.smooth.Reset()
	return GazeState{}
}

// Blink ends a held skull animation.
func (d *GazeDetector) Blink(now time.Time) {
	d.skull.End(now)
}

// FiredWithin reports whether drift fired less than window before now.
func (d *GazeDetector) FiredWithin(now time.Time, window time.Duration) bool {
	return d.cooldown.FiredWithin(now, window)
}

func (d *GazeDetector) clearDrift() {
	d.hold.Reset()
	d.active = false
	d.edge.Reset()
}

// Reset clears drift state, cooldown, smoothing and any calibration burst.
// The calibration profile is kept.
func (d *GazeDetector) Reset() {
	d.clearDrift()
	d.smooth.Reset()
	d.cooldown.Reset()
	d.skull.Reset()
	d.calibrating = false
	d.samples = d.samples[:0]
}
