package risk

import (
	"time"

	"github.com/teslashibe/go-wraith/pkg/sleep"
)

// Aggregator defaults.
const (
	BucketSpan       = time.Second
	ComputeAfter     = 800 * time.Millisecond
	DefaultWindow    = 120 * time.Second
	MinWindow        = 30 * time.Second
	DefaultThreshold = 0.65

	BlinkMin = 60 * time.Millisecond
	BlinkMax = 800 * time.Millisecond

	MsgAdvisory = "Predictive: drowsiness risk elevated"
)

// Config tunes the aggregator.
type Config struct {
	Enabled   bool          `yaml:"enabled"`
	Threshold float64       `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
	Weights   Weights       `yaml:"weights"`
}

// DefaultConfig returns the default aggregator tuning.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Threshold: DefaultThreshold,
		Window:    DefaultWindow,
		Weights:   DefaultWeights(),
	}
}

// Bucket holds one second of detector statistics.
type Bucket struct {
	Start        time.Time
	TotalFrames  int
	ClosedFrames int
	GazeFrames   int
	Blinks       int
	Yawns        int
	Tilts        int
}

// Input is one frame's detector output.
type Input struct {
	Now         time.Time
	FacePresent bool
	EyesClosed  bool
	GazeActive  bool
	YawnFired   bool
	TiltsFired  int
	Sleep       sleep.Profile
}

// Result is the aggregator's latest estimate.
type Result struct {
	Valid       bool     `json:"valid"`    // At least one estimate has been computed
	Updated     bool     `json:"-"`        // Recomputed on this tick
	Advisory    bool     `json:"advisory"` // At or above the threshold on this tick
	Probability float64  `json:"probability"`
	Buckets     int      `json:"buckets"`
	Features    Features `json:"features"`
}

// Aggregator buckets detector output per second over a sliding window and
// periodically re-estimates drowsiness probability.
type Aggregator struct {
	cfg     Config
	cur     *Bucket
	history []Bucket
	last    Result

	prevClosed bool
	closedAt   time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Config returns the current tuning.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// SetConfig replaces the tuning. Toggling Enabled clears all history.
func (a *Aggregator) SetConfig(cfg Config) {
	toggled := cfg.Enabled != a.cfg.Enabled
	a.cfg = cfg
	if toggled {
		a.Reset()
	}
}

func (a *Aggregator) window() time.Duration {
	return max(a.cfg.Window, MinWindow)
}

// Tick records one frame and returns the latest estimate.
func (a *Aggregator) Tick(in Input) Result {
	if !a.cfg.Enabled {
		return Result{}
	}
	now := in.Now

	if a.cur == nil || now.Sub(a.cur.Start) >= BucketSpan {
		if a.cur != nil {
			a.history = append(a.history, *a.cur)
		}
		a.trim(now)
		a.cur = &Bucket{Start: now}
	}

	b := a.cur
	b.TotalFrames++
	if in.FacePresent {
		if in.EyesClosed {
			b.ClosedFrames++
		}
		if in.GazeActive {
			b.GazeFrames++
		}
		if in.EyesClosed && !a.prevClosed {
			a.closedAt = now
		}
		if !in.EyesClosed && a.prevClosed {
			if d := now.Sub(a.closedAt); d > BlinkMin && d < BlinkMax {
				b.Blinks++
			}
		}
		a.prevClosed = in.EyesClosed
	}
	if in.YawnFired {
		b.Yawns++
	}
	b.Tilts += in.TiltsFired

	res := a.last
	res.Updated = false
	res.Advisory = false
	if now.Sub(b.Start) > ComputeAfter {
		res = a.compute(in)
		a.last = res
	}
	return res
}

func (a *Aggregator) trim(now time.Time) {
	cutoff := now.Add(-a.window())
	keep := a.history[:0]
	for _, b := range a.history {
		if !b.Start.Before(cutoff) {
			keep = append(keep, b)
		}
	}
	a.history = keep
}

func (a *Aggregator) compute(in Input) Result {
	var total, closed, gaze, blinks, yawns, tilts int
	add := func(b *Bucket) {
		total += b.TotalFrames
		closed += b.ClosedFrames
		gaze += b.GazeFrames
		blinks += b.Blinks
		yawns += b.Yawns
		tilts += b.Tilts
	}
	for i := range a.history {
		add(&a.history[i])
	}
	add(a.cur)
	n := len(a.history) + 1
	if total == 0 {
		total = 1
	}
	perMin := 60 / float64(n)

	f := Features{
		ClosedDuty:   float64(closed) / float64(total),
		GazeDuty:     float64(gaze) / float64(total),
		BlinksPerMin: float64(blinks) * perMin,
		YawnsPerMin:  float64(yawns) * perMin,
		TiltsPerMin:  float64(tilts) * perMin,
	}
	SleepFeatures(&f, in.Sleep, in.Now)

	p := Probability(f, a.cfg.Weights)
	return Result{
		Valid:       true,
		Updated:     true,
		Advisory:    p >= a.cfg.Threshold,
		Probability: p,
		Buckets:     n,
		Features:    f,
	}
}

// Last returns the latest estimate.
func (a *Aggregator) Last() Result {
	return a.last
}

// History returns a copy of the closed buckets in the window.
func (a *Aggregator) History() []Bucket {
	out := make([]Bucket, len(a.history))
	copy(out, a.history)
	return out
}

// Reset clears all buckets and the latest estimate.
func (a *Aggregator) Reset() {
	a.cur = nil
	a.history = nil
	a.last = Result{}
	a.prevClosed = false
	a.closedAt = time.Time{}
}
