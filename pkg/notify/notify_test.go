package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhook_Send(t *testing.T) {
	var got Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	rec := NewRecord(time.Unix(1000, 0).UTC())
	rec.DriverID = "D-7"
	rec.Score = 7
	rec.Threshold = 8
	rec.DrowsinessScore = 4

	w := NewWebhook(srv.URL)
	if err := w.Send(t.Context(), rec); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.ID != rec.ID || got.DriverID != "D-7" || got.Score != 7 || got.DrowsinessScore != 4 {
		t.Errorf("server got %+v", got)
	}
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Send(t.Context(), NewRecord(time.Now())); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestWebhook_NotifyIsAsync(t *testing.T) {
	hits := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	w.Notify(NewRecord(time.Now()))
	w.Wait()

	select {
	case <-hits:
	default:
		t.Error("webhook was not called")
	}
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, nil, b}.Notify(NewRecord(time.Now()))
	if len(a.Records()) != 1 || len(b.Records()) != 1 {
		t.Error("every notifier should receive the record")
	}
}

func TestNewRecord_UniqueIDs(t *testing.T) {
	if NewRecord(time.Now()).ID == NewRecord(time.Now()).ID {
		t.Error("record IDs should be unique")
	}
}
