package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/teslashibe/go-wraith/internal/httpc"
	"github.com/teslashibe/go-wraith/internal/log"
)

// DefaultWebhookTimeout bounds a single delivery.
const DefaultWebhookTimeout = 10 * time.Second

// Webhook POSTs records as JSON to an operator endpoint.
type Webhook struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client // Defaults to httpc.Client

	wg sync.WaitGroup
}

// NewWebhook creates a webhook notifier for url.
func NewWebhook(url string) *Webhook {
	return &Webhook{URL: url, Timeout: DefaultWebhookTimeout}
}

// Notify delivers the record on its own goroutine.
func (w *Webhook) Notify(rec Record) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Send(context.Background(), rec); err != nil {
			log.Error("operator notification failed", "id", rec.ID, "error", err)
			return
		}
		log.Info("operator notified", "id", rec.ID, "driver_id", rec.DriverID)
	}()
}

// Send delivers the record synchronously.
func (w *Webhook) Send(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("notify: marshal record: %w", err)
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = httpc.Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %s", resp.Status)
	}
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (w *Webhook) Wait() {
	w.wg.Wait()
}
