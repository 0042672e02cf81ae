// Package risk estimates the probability of drowsiness from a sliding window
// of per-second detector statistics combined with sleep and time-of-day
// features.
package risk

import (
	"math"
	"time"

	"github.com/teslashibe/go-wraith/pkg/sleep"
)

// Weights are the fixed coefficients of the logistic risk model. They are
// heuristic, not learned.
type Weights struct {
	Bias           float64 `yaml:"bias" json:"bias"`
	ClosedDuty     float64 `yaml:"closed_duty" json:"closed_duty"`
	GazeDuty       float64 `yaml:"gaze_duty" json:"gaze_duty"`
	BlinksPerMin   float64 `yaml:"blinks_per_min" json:"blinks_per_min"`
	YawnsPerMin    float64 `yaml:"yawns_per_min" json:"yawns_per_min"`
	TiltsPerMin    float64 `yaml:"tilts_per_min" json:"tilts_per_min"`
	SleepDebtHours float64 `yaml:"sleep_debt_hours" json:"sleep_debt_hours"`
	SleepRisk      float64 `yaml:"sleep_risk" json:"sleep_risk"`
	Circadian      float64 `yaml:"circadian" json:"circadian"`
	SinHour        float64 `yaml:"sin_hour" json:"sin_hour"`
	CosHour        float64 `yaml:"cos_hour" json:"cos_hour"`
}

// DefaultWeights returns the stock model coefficients.
func DefaultWeights() Weights {
	return Weights{
		Bias:           -1.4,
		ClosedDuty:     2.2,
		GazeDuty:       1.0,
		BlinksPerMin:   0.02, // Frequent blinking can precede drowsiness
		YawnsPerMin:    0.12,
		TiltsPerMin:    0.04,
		SleepDebtHours: 0.18,
		SleepRisk:      0.9,
		Circadian:      0.6,
		SinHour:        0.2,
		CosHour:        -0.05,
	}
}

// Features are the model inputs.
type Features struct {
	ClosedDuty     float64 `json:"closed_duty"`
	GazeDuty       float64 `json:"gaze_duty"`
	BlinksPerMin   float64 `json:"blinks_per_min"`
	YawnsPerMin    float64 `json:"yawns_per_min"`
	TiltsPerMin    float64 `json:"tilts_per_min"`
	SleepDebtHours float64 `json:"sleep_debt_hours"`
	SleepRisk      float64 `json:"sleep_risk"`
	Circadian      float64 `json:"circadian"`
	SinHour        float64 `json:"sin_hour"`
	CosHour        float64 `json:"cos_hour"`
}

// Probability returns the logistic of the weighted feature sum.
func Probability(f Features, w Weights) float64 {
	z := w.Bias +
		w.ClosedDuty*f.ClosedDuty +
		w.GazeDuty*f.GazeDuty +
		w.BlinksPerMin*f.BlinksPerMin +
		w.YawnsPerMin*f.YawnsPerMin +
		w.TiltsPerMin*f.TiltsPerMin +
		w.SleepDebtHours*f.SleepDebtHours +
		w.SleepRisk*f.SleepRisk +
		w.Circadian*f.Circadian +
		w.SinHour*f.SinHour +
		w.CosHour*f.CosHour
	return 1 / (1 + math.Exp(-z))
}

// SleepFeatures fills the sleep and time-of-day features for t.
func SleepFeatures(f *Features, p sleep.Profile, t time.Time) {
	a := p.Assess(t)
	f.SleepDebtHours = a.DebtHours
	f.SleepRisk = a.Risk
	f.Circadian = a.Circadian

	// Sine and cosine keep the daily cycle continuous across midnight.
	angle := 2 * math.Pi * sleep.HourOfDay(t) / 24
	f.SinHour = math.Sin(angle)
	f.CosHour = math.Cos(angle)
}
