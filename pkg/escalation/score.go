package escalation

import "time"

// DefaultRecentWindow is how long a yawn or tilt counts toward the score.
const DefaultRecentWindow = 5 * time.Second

// Signals are the detector outputs the score is built from.
type Signals struct {
	Accumulated      time.Duration // Eye-closure accumulator
	GazeActive       bool
	YawnRecent       bool // Yawn fired within the recent window
	TiltRecent       bool // Tilt fired within the recent window
	Probability      float64
	ProbabilityValid bool
}

// Score returns the integer drowsiness score for one frame.
func Score(s Signals) int {
	score := 0
	switch {
	case s.Accumulated > 2*time.Second:
		score += 2
	case s.Accumulated > time.Second:
		score++
	}
	if s.GazeActive {
		score++
	}
	if s.YawnRecent {
		score++
	}
	if s.TiltRecent {
		score++
	}
	if s.ProbabilityValid {
		switch {
		case s.Probability > 0.7:
			score += 2
		case s.Probability > 0.5:
			score++
		}
	}
	return score
}
