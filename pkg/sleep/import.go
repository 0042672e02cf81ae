package sleep

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Import messages shown to the driver.
const (
	MsgImported     = "Sleep profile imported"
	MsgImportFailed = "Import failed: invalid JSON"
)

// ErrInvalidImport is returned when an imported profile cannot be parsed.
var ErrInvalidImport = errors.New("sleep: invalid profile import")

// Import is a parsed sleep profile document. Fields that were absent or not
// numeric are nil.
type Import struct {
	LastSleepHours *float64
	IdealHours     *float64
}

// ParseImport parses a JSON object with optional numeric "lastSleepHours"
// and "idealHours". Nothing is applied if the document fails to parse.
func ParseImport(data []byte) (Import, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Import{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return Import{
		LastSleepHours: number(raw["lastSleepHours"]),
		IdealHours:     number(raw["idealHours"]),
	}, nil
}

func number(msg json.RawMessage) *float64 {
	if len(msg) == 0 || string(msg) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil
	}
	return &v
}

// Apply copies the present fields onto p.
func (im Import) Apply(p *Profile) {
	if im.LastSleepHours != nil {
		v := *im.LastSleepHours
		p.LastSleepHours = &v
	}
	if im.IdealHours != nil {
		p.IdealHours = *im.IdealHours
	}
}
