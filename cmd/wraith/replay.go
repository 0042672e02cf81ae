package main

import (
	"context"
	"fmt"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/face"
	"github.com/teslashibe/go-wraith/pkg/ingest"
)

// Synthetic drive shape.
const (
	blinkPeriod   = 4 * time.Second
	blinkLength   = 150 * time.Millisecond
	drowsyEyeOpen = 0.08
	drowsyRoll    = 0.3 // radians, past the default tilt threshold
	yawnPeriod    = 6 * time.Second
	yawnLength    = 2 * time.Second
	yawnMouthOpen = 0.8
	cruiseAccel   = 1.2 // m/s², above the default motion threshold
)

type replayFlags struct {
	url    string
	fps    int
	alert  time.Duration
	drowsy time.Duration
	binary bool
	motion bool
}

// scenario is a drive that starts alert and then gets drowsy.
type scenario struct {
	alert  time.Duration
	drowsy time.Duration
}

func (s scenario) length() time.Duration {
	return s.alert + s.drowsy
}

// poseAt returns the synthetic face at elapsed. ok is false once the
// scenario is over.
func (s scenario) poseAt(elapsed time.Duration) (face.Pose, bool) {
	if elapsed < 0 || elapsed >= s.length() {
		return face.Pose{}, false
	}
	p := face.NeutralPose()
	if elapsed < s.alert {
		if elapsed%blinkPeriod < blinkLength {
			p.EyeOpen = drowsyEyeOpen
		}
		return p, true
	}

	in := elapsed - s.alert
	p.EyeOpen = drowsyEyeOpen
	p.Roll = drowsyRoll * math.Min(1, in.Seconds())
	if in%yawnPeriod < yawnLength {
		p.MouthOpen = yawnMouthOpen
	}
	return p, true
}

func newReplayCmd() *cobra.Command {
	f := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Stream a synthetic drive to a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&f.url, "url", "u", "ws://localhost:8080/ws/frames", "Frame ingest websocket")
	cmd.Flags().IntVar(&f.fps, "fps", 15, "Frames per second")
	cmd.Flags().DurationVar(&f.alert, "alert", 5*time.Second, "Alert driving before the eyes close")
	cmd.Flags().DurationVar(&f.drowsy, "drowsy", 10*time.Second, "Drowsy driving after the alert phase")
	cmd.Flags().BoolVar(&f.binary, "binary", false, "Send msgpack binary frames instead of JSON")
	cmd.Flags().BoolVar(&f.motion, "motion", true, "Send acceleration samples so the vehicle reads as moving")
	return cmd
}

func replay(ctx context.Context, f *replayFlags) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if f.fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", f.fps)
	}
	sc := scenario{alert: f.alert, drowsy: f.drowsy}

	client, err := ingest.Dial(ctx, f.url, f.binary)
	if err != nil {
		return err
	}
	defer client.Close()
	log.Info("replaying synthetic drive", "url", f.url, "fps", f.fps, "length", sc.length(), "binary", f.binary)

	ticker := time.NewTicker(time.Second / time.Duration(f.fps))
	defer ticker.Stop()

	start := time.Now()
	sent := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("replay interrupted", "frames", sent)
			return nil
		case now := <-ticker.C:
			pose, ok := sc.poseAt(now.Sub(start))
			if !ok {
				log.Info("replay finished", "frames", sent)
				return nil
			}
			if f.motion {
				if err := client.SendMotion(cruiseAccel); err != nil {
					return err
				}
			}
			frame := face.Frame{Faces: []face.Face{face.Synthesize(pose)}, Timestamp: now}
			if err := client.SendFrame(frame); err != nil {
				return err
			}
			sent++
		}
	}
}
