package filter

import "time"

// HoldTimer measures how long a condition has held continuously.
type HoldTimer struct {
	start  time.Time
	active bool
}

// Hold marks the condition as holding at now. The start instant is only
// recorded on the first call after a reset.
func (h *HoldTimer) Hold(now time.Time) time.Duration {
	if !h.active {
		h.start = now
		h.active = true
	}
	return now.Sub(h.start)
}

// Held returns how long the condition has held at now, or 0 if inactive.
func (h *HoldTimer) Held(now time.Time) time.Duration {
	if !h.active {
		return 0
	}
	return now.Sub(h.start)
}

// Active reports whether a hold is in progress.
func (h *HoldTimer) Active() bool {
	return h.active
}

// Reset clears the hold. There is no partial credit.
func (h *HoldTimer) Reset() {
	h.start = time.Time{}
	h.active = false
}

// Cooldown suppresses re-triggering within Window of the last fire.
type Cooldown struct {
	Window time.Duration

	last  time.Time
	fired bool
}

// NewCooldown creates a cooldown with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{Window: window}
}

// Ready reports whether an event may fire at now: it never fired, or strictly
// more than Window has elapsed since it last did.
func (c *Cooldown) Ready(now time.Time) bool {
	if !c.fired {
		return true
	}
	return now.Sub(c.last) > c.Window
}

// Fire records now as the last fire instant.
func (c *Cooldown) Fire(now time.Time) {
	c.last = now
	c.fired = true
}

// Last returns the last fire instant and whether there was one.
func (c *Cooldown) Last() (time.Time, bool) {
	return c.last, c.fired
}

// FiredWithin reports whether the last fire happened less than d before now.
func (c *Cooldown) FiredWithin(now time.Time, d time.Duration) bool {
	return c.fired && now.Sub(c.last) < d
}

// Reset forgets the last fire.
func (c *Cooldown) Reset() {
	c.last = time.Time{}
	c.fired = false
}
