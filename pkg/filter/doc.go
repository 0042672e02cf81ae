// Package filter provides the small building blocks every detector is made of:
// trailing-window smoothers, an exponential moving average, an edge detector,
// and wall-clock hold and cooldown timers.
//
// Nothing in this package schedules callbacks. Every timer compares the
// caller's timestamp against a stored instant, so results stay correct across
// variable and dropped frame rates.
package filter
