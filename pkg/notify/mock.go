package notify

import "sync"

// Recorder collects records for testing.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// Notify stores the record.
func (r *Recorder) Notify(rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Records returns a copy of the collected records.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
