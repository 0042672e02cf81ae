package ingest

import (
	"context"

	"github.com/teslashibe/go-wraith/pkg/face"
	"github.com/teslashibe/go-wraith/pkg/pipeline"
)

// Sink consumes decoded ingest messages. *pipeline.Pipeline is a Sink.
type Sink interface {
	Process(ctx context.Context, frame face.Frame) pipeline.Snapshot
	SetMotion(magnitude float64) bool
	SetMotionVector(x, y, z float64) bool
	MicrogameHit() bool
}

var _ Sink = (*pipeline.Pipeline)(nil)

// Dispatch routes one message to the sink.
func Dispatch(ctx context.Context, sink Sink, m Message) {
	switch m.Type {
	case TypeFrame:
		sink.Process(ctx, m.Frame())
	case TypeMotion:
		if m.Motion.Magnitude != nil {
			sink.SetMotion(*m.Motion.Magnitude)
		} else {
			sink.SetMotionVector(m.Motion.X, m.Motion.Y, m.Motion.Z)
		}
	case TypeHit:
		sink.MicrogameHit()
	}
}
