package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookPublisher posts purchase events as JSON to an analytics endpoint.
type WebhookPublisher struct {
	client *resty.Client
	url    string
}

func NewWebhookPublisher(url, token string, timeout time.Duration) *WebhookPublisher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &WebhookPublisher{client: client, url: url}
}

func (p *WebhookPublisher) Name() string { return "webhook" }

func (p *WebhookPublisher) Publish(ctx context.Context, event PurchaseEvent) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", event.EventID).
		SetBody(event).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("post purchase event: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post purchase event: unexpected status %d", resp.StatusCode())
	}
	return nil
}
