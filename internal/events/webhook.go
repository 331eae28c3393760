package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WebhookConfig describes an HTTP endpoint that receives every event
type WebhookConfig struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// WebhookPublisher POSTs events as JSON to a configured endpoint. Each event
// is sent once; a failed delivery is reported and not retried.
type WebhookPublisher struct {
	config     WebhookConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookPublisher creates a webhook publisher
func NewWebhookPublisher(config WebhookConfig, logger *zap.Logger) *WebhookPublisher {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &WebhookPublisher{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.send(ctx, body, event); err != nil {
		p.logger.Warn("Webhook delivery failed",
			zap.String("url", p.config.URL),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	return nil
}

func (p *WebhookPublisher) send(ctx context.Context, body []byte, event Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	for key, value := range p.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
