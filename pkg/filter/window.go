package filter

// Window is a trailing arithmetic mean over the last N samples.
type Window struct {
	size    int
	samples []float64
}

// NewWindow creates a window holding at most size samples (minimum 1).
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, samples: make([]float64, 0, size)}
}

// Push adds a sample and returns the mean of the current window.
func (w *Window) Push(v float64) float64 {
	w.samples = append(w.samples, v)
	w.trim()
	return w.Mean()
}

// Mean returns the mean of the samples in the window, or 0 if empty.
func (w *Window) Mean() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s
	}
	return sum / float64(len(w.samples))
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return len(w.samples)
}

// Size returns the configured capacity.
func (w *Window) Size() int {
	return w.size
}

// SetSize changes the capacity. Shrinking drops the oldest samples.
func (w *Window) SetSize(size int) {
	if size < 1 {
		size = 1
	}
	w.size = size
	w.trim()
}

// Reset clears all samples.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
}

func (w *Window) trim() {
	if over := len(w.samples) - w.size; over > 0 {
		w.samples = append(w.samples[:0], w.samples[over:]...)
	}
}

// VecWindow is a per-component trailing mean over the last N vectors.
// Pushing a vector of a different length clears the history.
type VecWindow struct {
	size    int
	samples [][]float64
}

// NewVecWindow creates a vector window holding at most size vectors.
func NewVecWindow(size int) *VecWindow {
	if size < 1 {
		size = 1
	}
	return &VecWindow{size: size}
}

// Push adds a vector and returns the component-wise mean of the window.
func (w *VecWindow) Push(v []float64) []float64 {
	if len(w.samples) > 0 && len(w.samples[0]) != len(v) {
		w.samples = nil
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	w.samples = append(w.samples, cp)
	if over := len(w.samples) - w.size; over > 0 {
		w.samples = w.samples[over:]
	}

	mean := make([]float64, len(v))
	for _, s := range w.samples {
		for i, x := range s {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float64(len(w.samples))
	}
	return mean
}

// Len returns the number of vectors currently held.
func (w *VecWindow) Len() int {
	return len(w.samples)
}

// SetSize changes the capacity. Shrinking drops the oldest vectors.
func (w *VecWindow) SetSize(size int) {
	if size < 1 {
		size = 1
	}
	w.size = size
	if over := len(w.samples) - w.size; over > 0 {
		w.samples = w.samples[over:]
	}
}

// Reset clears all vectors.
func (w *VecWindow) Reset() {
	w.samples = nil
}
