// Package detect holds the per-frame debounced detectors.
//
// Each detector is an explicit struct with an Update method that takes the
// frame's derived measurement plus the frame timestamp (or elapsed time) and
// returns a value describing its state for that frame. Hold and cooldown
// timers compare timestamps, so they stay correct across dropped frames and
// variable frame rates. Detectors are not safe for concurrent use; the
// pipeline serializes access.
package detect
