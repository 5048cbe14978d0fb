package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// WebhookSink posts each event as JSON to a configured URL, one
// request per event. The receiving side (push gateway, in-app feed
// service) is opaque to this package.
type WebhookSink struct {
	URL        string
	HTTPClient *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *WebhookSink) Name() string {
	return "webhook"
}

func (s *WebhookSink) Deliver(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling notification event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes every event to the application log. It is always
// configured, so state transitions remain observable without any
// external channel.
type LogSink struct{}

func (LogSink) Name() string {
	return "log"
}

func (LogSink) Deliver(_ context.Context, event Event) error {
	log.WithFields(log.Fields{
		"kind":      event.Kind,
		"recipient": event.RecipientID,
		"payload":   event.PayloadRef,
	}).Info("notification")
	return nil
}
