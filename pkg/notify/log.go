package notify

import "github.com/teslashibe/go-wraith/internal/log"

// Log writes records to the structured log.
type Log struct{}

// Notify logs the record at warn level.
func (Log) Notify(rec Record) {
	log.Warn("driver failed alertness check",
		"id", rec.ID,
		"driver_id", rec.DriverID,
		"vehicle_id", rec.VehicleID,
		"score", rec.Score,
		"threshold", rec.Threshold,
		"drowsiness_score", rec.DrowsinessScore,
		"location", rec.Location,
	)
}
