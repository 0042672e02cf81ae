package escalation

import "time"

// Microgame defaults.
const (
	DefaultTargets        = 10
	DefaultTargetInterval = time.Second
	DefaultTargetVisible  = 800 * time.Millisecond
	DefaultGameDuration   = 10 * time.Second
	DefaultPassHits       = 8
)

// MicrogameConfig tunes the alertness microgame.
type MicrogameConfig struct {
	Targets  int           `yaml:"targets"`
	Interval time.Duration `yaml:"interval"`
	Visible  time.Duration `yaml:"visible"`
	Duration time.Duration `yaml:"duration"`
	PassHits int           `yaml:"pass_hits"`
}

// DefaultMicrogameConfig returns the default microgame tuning.
func DefaultMicrogameConfig() MicrogameConfig {
	return MicrogameConfig{
		Targets:  DefaultTargets,
		Interval: DefaultTargetInterval,
		Visible:  DefaultTargetVisible,
		Duration: DefaultGameDuration,
		PassHits: DefaultPassHits,
	}
}

// GameState describes a running microgame at one instant.
type GameState struct {
	Target    int           `json:"target"` // -1 when no target is visible
	Hits      int           `json:"hits"`
	Remaining time.Duration `json:"remaining"`
}

// Microgame is a reaction test: targets appear one per interval and each
// stays visible for a short time. A target counts once.
type Microgame struct {
	cfg     MicrogameConfig
	started time.Time
	active  bool
	hit     []bool
	hits    int
}

// NewMicrogame creates an idle microgame.
func NewMicrogame(cfg MicrogameConfig) *Microgame {
	return &Microgame{cfg: cfg}
}

// Start begins a game at now, discarding any previous result.
func (g *Microgame) Start(now time.Time) {
	g.started = now
	g.active = true
	g.hit = make([]bool, g.cfg.Targets)
	g.hits = 0
}

// Active reports whether a game is running.
func (g *Microgame) Active() bool {
	return g.active
}

// Target returns the index of the target visible at now, or -1.
func (g *Microgame) Target(now time.Time) int {
	if !g.active || g.cfg.Interval <= 0 {
		return -1
	}
	elapsed := now.Sub(g.started)
	if elapsed < 0 || elapsed >= g.cfg.Duration {
		return -1
	}
	idx := int(elapsed / g.cfg.Interval)
	if idx >= g.cfg.Targets {
		return -1
	}
	if elapsed-time.Duration(idx)*g.cfg.Interval >= g.cfg.Visible {
		return -1
	}
	return idx
}

// Hit records an acknowledgement at now. It returns true if it landed on a
// visible target that had not been hit yet.
func (g *Microgame) Hit(now time.Time) bool {
	idx := g.Target(now)
	if idx < 0 || g.hit[idx] {
		return false
	}
	g.hit[idx] = true
	g.hits++
	return true
}

// Hits returns the number of targets hit.
func (g *Microgame) Hits() int {
	return g.hits
}

// Done reports whether the game's duration has elapsed.
func (g *Microgame) Done(now time.Time) bool {
	return g.active && now.Sub(g.started) >= g.cfg.Duration
}

// Passed reports whether enough targets were hit.
func (g *Microgame) Passed() bool {
	return g.hits >= g.cfg.PassHits
}

// State returns the game's state at now.
func (g *Microgame) State(now time.Time) GameState {
	if !g.active {
		return GameState{Target: -1}
	}
	return GameState{
		Target:    g.Target(now),
		Hits:      g.hits,
		Remaining: max(0, g.cfg.Duration-now.Sub(g.started)),
	}
}

// Stop ends the game without a result.
func (g *Microgame) Stop() {
	g.active = false
}
