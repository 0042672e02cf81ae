package filter

// EMA is an exponential moving average: v = (1-Alpha)*v + Alpha*x.
// The first sample seeds the value.
type EMA struct {
	Alpha float64

	value  float64
	seeded bool
}

// NewEMA creates an EMA with the given learning rate (0-1).
func NewEMA(alpha float64) *EMA {
	return &EMA{Alpha: alpha}
}

// Update folds x into the average and returns the new value.
func (e *EMA) Update(x float64) float64 {
	if !e.seeded {
		e.value = x
		e.seeded = true
		return e.value
	}
	e.value = (1-e.Alpha)*e.value + e.Alpha*x
	return e.value
}

// Value returns the current average.
func (e *EMA) Value() float64 {
	return e.value
}

// Reset forgets the seeded value.
func (e *EMA) Reset() {
	e.value = 0
	e.seeded = false
}
