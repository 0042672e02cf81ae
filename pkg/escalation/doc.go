// Package escalation turns the per-frame drowsiness signals into a blocking
// alert while the vehicle is moving, and an alertness microgame once it
// stops.
//
// The machine runs Idle -> AlertActive -> Microgame -> Idle. Motion is
// only consulted outside the microgame; a running game always plays out
// its full duration.
package escalation
