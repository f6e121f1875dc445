package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nomwatch/pkg/logx"
)

type WebhookConfig struct {
	// Endpoint receives one POST per digest part.
	Endpoint string
	// MessageLimit caps a single payload's text size (0 = no splitting).
	MessageLimit int
	Timeout      time.Duration
}

// Webhook pushes digests as JSON to a configured endpoint. The receiving
// side routes on the address field; markup is plain text.
type Webhook struct {
	cfg  WebhookConfig
	log  logx.Logger
	http *http.Client
}

func NewWebhook(cfg WebhookConfig, log logx.Logger) (*Webhook, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("webhook endpoint is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Webhook{cfg: cfg, log: log, http: &http.Client{Timeout: timeout}}, nil
}

func (w *Webhook) Name() string        { return "webhook" }
func (w *Webhook) MarkupEnabled() bool { return false }

func (w *Webhook) Send(ctx context.Context, address, text string) error {
	parts := []string{text}
	if w.cfg.MessageLimit > 0 {
		parts = SplitMessage(text, w.cfg.MessageLimit)
	}
	for i, part := range parts {
		payload, err := json.Marshal(map[string]any{
			"address": address,
			"text":    part,
			"part":    i + 1,
			"parts":   len(parts),
		})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.http.Do(req)
		if err != nil {
			return fmt.Errorf("webhook send part %d: %w", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("webhook send part %d: status %d", i+1, resp.StatusCode)
		}
	}
	return nil
}

var _ Channel = (*Webhook)(nil)
