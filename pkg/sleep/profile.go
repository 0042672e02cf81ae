// Package sleep models the driver's sleep profile and time-of-day risk.
package sleep

import (
	"math"
	"time"
)

// DefaultIdealHours is the assumed nightly sleep need.
const DefaultIdealHours = 7.5

// DebtSaturation is the sleep debt at which debt risk reaches 1.
const DebtSaturation = 2.5

// Profile is the driver's sleep profile. LastSleepHours is nil until set,
// imported or synced.
type Profile struct {
	IdealHours     float64  `json:"idealHours" yaml:"ideal_hours"`
	LastSleepHours *float64 `json:"lastSleepHours" yaml:"last_sleep_hours"`
}

// DefaultProfile returns a profile with the default ideal and no known sleep.
func DefaultProfile() Profile {
	return Profile{IdealHours: DefaultIdealHours}
}

// Assessment is the sleep-derived risk at one instant.
type Assessment struct {
	DebtHours float64 `json:"debt_hours"`
	DebtRisk  float64 `json:"debt_risk"`
	Circadian float64 `json:"circadian"`
	Risk      float64 `json:"risk"`
}

// Ideal returns the ideal hours, falling back to the default when unset.
func (p Profile) Ideal() float64 {
	if p.IdealHours <= 0 || math.IsNaN(p.IdealHours) {
		return DefaultIdealHours
	}
	return p.IdealHours
}

// DebtHours returns max(0, ideal - last). Unknown sleep counts as no debt.
func (p Profile) DebtHours() float64 {
	ideal := p.Ideal()
	last := ideal
	if p.LastSleepHours != nil {
		last = *p.LastSleepHours
	}
	return math.Max(0, ideal-last)
}

// Assess combines sleep debt and circadian risk at t (local time of t).
func (p Profile) Assess(t time.Time) Assessment {
	debt := p.DebtHours()
	debtRisk := clamp01(debt / DebtSaturation)
	circ := Circadian(t)
	return Assessment{
		DebtHours: debt,
		DebtRisk:  debtRisk,
		Circadian: circ,
		Risk:      clamp01(0.65*debtRisk + 0.35*circ),
	}
}

// SetLastSleep records the last night's sleep. NaN clears it.
func (p *Profile) SetLastSleep(hours float64) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		p.LastSleepHours = nil
		return
	}
	p.LastSleepHours = &hours
}

// HourOfDay returns the fractional local hour of t.
func HourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// Circadian returns time-of-day drowsiness risk in [0,1]: a main lobe
// peaking at 03:00 and a smaller one at 15:00.
func Circadian(t time.Time) float64 {
	h := HourOfDay(t)
	night := 0.5 * (1 + math.Cos((h-3)/6*math.Pi))
	afternoon := 0.35 * (1 + math.Cos((h-15)/4*math.Pi))
	return clamp01(0.6*night + 0.4*afternoon)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
