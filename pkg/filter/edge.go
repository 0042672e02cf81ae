package filter

// Edge is a transition of a boolean signal between two updates.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
)

// String returns a readable name for logs.
func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	default:
		return "none"
	}
}

// EdgeDetector reports rising and falling transitions of a boolean signal.
// The zero value starts from false.
type EdgeDetector struct {
	prev bool
}

// Update records the current value and returns the transition since the last call.
func (d *EdgeDetector) Update(cur bool) Edge {
	prev := d.prev
	d.prev = cur
	switch {
	case cur && !prev:
		return EdgeRising
	case !cur && prev:
		return EdgeFalling
	default:
		return EdgeNone
	}
}

// Value returns the last recorded value.
func (d *EdgeDetector) Value() bool {
	return d.prev
}

// Reset sets the previous value back to false.
func (d *EdgeDetector) Reset() {
	d.prev = false
}
