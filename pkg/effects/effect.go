// Package effects models the lifecycle of one-shot side effects: overlay
// animations and looping sounds. Only one instance of each may run at a time.
package effects

import "time"

// Phase is the stage of an animation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseIn
	PhaseHold
	PhaseOut
)

// String returns the phase name used in snapshots.
func (p Phase) String() string {
	switch p {
	case PhaseIn:
		return "in"
	case PhaseHold:
		return "hold"
	case PhaseOut:
		return "out"
	default:
		return "idle"
	}
}

// Effect is a single animation instance.
//
// A fixed effect runs for Duration after Start. An open-ended effect (Duration
// of zero) holds after its In phase until End is called, then runs Out.
type Effect struct {
	Name     string
	Duration time.Duration
	In       time.Duration
	Out      time.Duration

	start   time.Time
	endAt   time.Time
	started bool
	ending  bool
}

// NewEffect creates a fixed-duration effect.
func NewEffect(name string, d time.Duration) *Effect {
	return &Effect{Name: name, Duration: d}
}

// NewHeldEffect creates an open-ended effect with in and out phases.
func NewHeldEffect(name string, in, out time.Duration) *Effect {
	return &Effect{Name: name, In: in, Out: out}
}

// Start begins the effect at now. It is a no-op returning false while the
// effect is still active.
func (e *Effect) Start(now time.Time) bool {
	if e.Active(now) {
		return false
	}
	e.start = now
	e.started = true
	e.ending = false
	e.endAt = time.Time{}
	return true
}

// End starts the out phase of an open-ended effect. Fixed effects ignore it.
func (e *Effect) End(now time.Time) {
	if !e.started || e.ending || e.Duration > 0 {
		return
	}
	e.ending = true
	e.endAt = now
}

// Active reports whether the effect is running at now.
func (e *Effect) Active(now time.Time) bool {
	return e.Phase(now) != PhaseIdle
}

// Phase returns the stage of the effect at now.
func (e *Effect) Phase(now time.Time) Phase {
	if !e.started {
		return PhaseIdle
	}
	elapsed := now.Sub(e.start)

	if e.Duration > 0 {
		switch {
		case elapsed >= e.Duration:
			return PhaseIdle
		case elapsed < e.In:
			return PhaseIn
		case e.Out > 0 && elapsed >= e.Duration-e.Out:
			return PhaseOut
		default:
			return PhaseHold
		}
	}

	if e.ending {
		if now.Sub(e.endAt) >= e.Out {
			return PhaseIdle
		}
		return PhaseOut
	}
	if elapsed < e.In {
		return PhaseIn
	}
	return PhaseHold
}

// Reset stops the effect immediately.
func (e *Effect) Reset() {
	e.start = time.Time{}
	e.endAt = time.Time{}
	e.started = false
	e.ending = false
}
