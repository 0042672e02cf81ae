package ingest

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-wraith/pkg/face"
)

func testFrame() face.Frame {
	return face.Frame{
		Faces:     []face.Face{face.Synthesize(face.NeutralPose())},
		Image:     []byte{0xff, 0xd8, 0xff},
		Timestamp: time.UnixMilli(1_700_000_000_123),
	}
}

func TestEncodeDecode_Frame(t *testing.T) {
	for _, binary := range []bool{false, true} {
		name := "json"
		if binary {
			name = "msgpack"
		}
		t.Run(name, func(t *testing.T) {
			in := testFrame()
			data, err := Encode(NewFrameMessage(in), binary)
			if err != nil {
				t.Fatal(err)
			}
			msg, err := Decode(data, binary)
			if err != nil {
				t.Fatal(err)
			}
			out := msg.Frame()
			if !out.Timestamp.Equal(in.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", out.Timestamp, in.Timestamp)
			}
			if len(out.Faces) != 1 || len(out.Faces[0]) != len(in.Faces[0]) {
				t.Fatalf("faces not preserved")
			}
			if string(out.Image) != string(in.Image) {
				t.Errorf("Image = %v", out.Image)
			}
			_, _, want, _ := face.MeanEyeAspectRatio(in.Faces[0])
			if _, _, got, _ := face.MeanEyeAspectRatio(out.Faces[0]); got != want {
				t.Errorf("EAR after decode = %v, want %v", got, want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"unknown type", `{"type":"dance"}`, ErrUnknownType},
		{"motion without sample", `{"type":"motion"}`, ErrEmptyMotion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data), false); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Decode([]byte("{"), false); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := Decode([]byte{0xc1}, true); err == nil {
		t.Error("expected error for malformed msgpack")
	}
}

func TestMessage_FrameWithoutTimestamp(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"frame","faces":[]}`), false)
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Frame().Timestamp.IsZero() {
		t.Error("missing ts should leave the timestamp zero")
	}
}

func TestDispatch(t *testing.T) {
	sink := &MockSink{}
	ctx := t.Context()

	Dispatch(ctx, sink, NewFrameMessage(testFrame()))
	Dispatch(ctx, sink, NewMotionMessage(0.8))
	Dispatch(ctx, sink, Message{Type: TypeMotion, Motion: &Motion{X: 3, Y: 4}})
	Dispatch(ctx, sink, NewHitMessage())

	if n := len(sink.Frames()); n != 1 {
		t.Errorf("frames = %d, want 1", n)
	}
	motions := sink.Motions()
	if len(motions) != 2 || motions[0] != 0.8 || motions[1] != 5 {
		t.Errorf("motions = %v, want [0.8 5]", motions)
	}
	if sink.Hits() != 1 {
		t.Errorf("hits = %d, want 1", sink.Hits())
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out after %d of %d messages", i, n)
		}
	}
}

func TestServer_WebSocket(t *testing.T) {
	got := make(chan struct{}, 16)
	sink := &MockSink{Notify: func() { got <- struct{}{} }}
	srv := NewServer(t.Context(), sink)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	srv.RegisterRoutes(app)
	go app.Listen(":18190")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	for _, binary := range []bool{false, true} {
		c, err := Dial(t.Context(), "ws://localhost:18190/ws/frames", binary)
		if err != nil {
			t.Fatalf("Dial error: %v", err)
		}
		if err := c.SendFrame(testFrame()); err != nil {
			t.Fatal(err)
		}
		if err := c.SendMotion(1.2); err != nil {
			t.Fatal(err)
		}
		if err := c.SendHit(); err != nil {
			t.Fatal(err)
		}
		waitFor(t, got, 3)
		c.Close()
	}

	if n := len(sink.Frames()); n != 2 {
		t.Errorf("frames = %d, want 2", n)
	}
	if sink.Hits() != 2 {
		t.Errorf("hits = %d, want 2", sink.Hits())
	}
	stats := srv.Stats()
	if stats.Messages != 6 || stats.Frames != 2 || stats.DecodeErrors != 0 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestServer_HandleCountsDecodeErrors(t *testing.T) {
	srv := NewServer(t.Context(), &MockSink{})
	srv.Handle("test", []byte("not json"), false)
	if got := srv.Stats().DecodeErrors; got != 1 {
		t.Errorf("DecodeErrors = %d, want 1", got)
	}
}

func TestServer_RejectsPlainHTTP(t *testing.T) {
	app := fiber.New()
	NewServer(t.Context(), &MockSink{}).RegisterRoutes(app)

	resp, err := app.Test(newRequest("GET", "/ws/frames"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("Status = %d, want 426", resp.StatusCode)
	}
}

func TestWebRTCReceiver_DataChannel(t *testing.T) {
	got := make(chan struct{}, 16)
	sink := &MockSink{Notify: func() { got <- struct{}{} }}
	srv := NewServer(t.Context(), sink)
	rx := NewWebRTCReceiver(srv)
	defer rx.Close()

	offerer, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatal(err)
	}
	defer offerer.Close()

	dc, err := offerer.CreateDataChannel("frames", nil)
	if err != nil {
		t.Fatal(err)
	}
	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })

	offer, err := offerer.CreateOffer(nil)
	if err != nil {
		t.Fatal(err)
	}
	gathered := webrtc.GatheringCompletePromise(offerer)
	if err := offerer.SetLocalDescription(offer); err != nil {
		t.Fatal(err)
	}
	<-gathered

	answer, err := rx.Answer(t.Context(), *offerer.LocalDescription())
	if err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if err := offerer.SetRemoteDescription(answer); err != nil {
		t.Fatal(err)
	}

	select {
	case <-opened:
	case <-time.After(10 * time.Second):
		t.Fatal("data channel did not open")
	}

	data, _ := Encode(NewFrameMessage(testFrame()), true)
	if err := dc.Send(data); err != nil {
		t.Fatal(err)
	}
	text, _ := Encode(NewHitMessage(), false)
	if err := dc.SendText(string(text)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, got, 2)

	if len(sink.Frames()) != 1 || sink.Hits() != 1 {
		t.Errorf("frames = %d hits = %d", len(sink.Frames()), sink.Hits())
	}
	if rx.Peers() != 1 {
		t.Errorf("Peers = %d, want 1", rx.Peers())
	}
}

func TestWebRTCReceiver_BadOffer(t *testing.T) {
	rx := NewWebRTCReceiver(NewServer(t.Context(), &MockSink{}))
	_, err := rx.Answer(t.Context(), webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "x"})
	if !errors.Is(err, ErrBadOffer) {
		t.Errorf("err = %v, want ErrBadOffer", err)
	}
	if rx.Peers() != 0 {
		t.Errorf("Peers = %d after bad offer", rx.Peers())
	}
}

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}
