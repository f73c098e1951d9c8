package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/college-enroll-api/internal/models"
)

// Sender delivers a notification event to the external delivery service.
type Sender interface {
	Send(ctx context.Context, event models.NotificationEvent) error
}

// WebhookSender posts events as JSON to the notification service endpoint.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender constructs a sender for the given endpoint.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{url: url, client: &http.Client{Timeout: timeout}}
}

// Send posts the event. Any non-2xx response is an error so the caller's
// retry policy applies.
func (s *WebhookSender) Send(ctx context.Context, event models.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode notification event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification service responded %d", resp.StatusCode)
	}
	return nil
}
