package pipeline

import (
	"time"

	"github.com/teslashibe/go-wraith/pkg/detect"
	"github.com/teslashibe/go-wraith/pkg/escalation"
	"github.com/teslashibe/go-wraith/pkg/risk"
	"github.com/teslashibe/go-wraith/pkg/sleep"
)

// Snapshot is the complete pipeline state after one tick. It is a value;
// the pipeline never mutates a snapshot once returned.
type Snapshot struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Running   bool      `json:"running"`
	Faces     int       `json:"faces"`
	Target    int       `json:"target"` // -1 when no face is tracked
	RollDeg   float64   `json:"roll_deg"`
	EARLeft   float64   `json:"ear_left"`
	EARRight  float64   `json:"ear_right"`

	Eyes    detect.EyeState     `json:"eyes"`
	Overlay detect.OverlayState `json:"overlay"`
	Tilt    detect.TiltState    `json:"tilt"`
	Gaze    detect.GazeState    `json:"gaze"`
	Yawn    detect.YawnState    `json:"yawn"`

	Risk       risk.Result      `json:"risk"`
	Sleep      sleep.Assessment `json:"sleep"`
	Thresholds risk.Thresholds  `json:"thresholds"` // Effective, after auto-adapt

	Score      int                 `json:"score"`
	Escalation escalation.Step     `json:"escalation"`
	Moving     bool                `json:"moving"`
	Override   escalation.Override `json:"override"`
	Siren      bool                `json:"siren"`
	AlertTone  bool                `json:"alert_tone"`

	DrowsyCount int                       `json:"drowsy_count"`
	Message     string                    `json:"message"`
	Calibration *detect.CalibrationResult `json:"calibration,omitempty"`
}
