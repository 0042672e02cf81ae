// Package notify delivers operator notifications when a driver fails the
// alertness check. Delivery is fire-and-forget: failures are logged, never
// returned to the caller.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Record describes a failed alertness check.
type Record struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	DriverID        string    `json:"driverId"`
	VehicleID       string    `json:"vehicleId"`
	Score           int       `json:"score"`
	Threshold       int       `json:"threshold"`
	DrowsinessScore int       `json:"drowsinessScore"`
	Location        string    `json:"location"`
}

// NewRecord creates a record with a fresh ID.
func NewRecord(ts time.Time) Record {
	return Record{ID: uuid.NewString(), Timestamp: ts}
}

// Notifier delivers records. Notify must not block the caller.
type Notifier interface {
	Notify(rec Record)
}

// Multi fans a record out to several notifiers.
type Multi []Notifier

// Notify delivers to every notifier.
func (m Multi) Notify(rec Record) {
	for _, n := range m {
		if n != nil {
			n.Notify(rec)
		}
	}
}
