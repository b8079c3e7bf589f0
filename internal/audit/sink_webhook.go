package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected marks a 4xx answer from the collector. Those are not retried.
var ErrRejected = errors.New("webhook rejected event")

// WebhookConfig configures delivery to an HTTP collector.
type WebhookConfig struct {
	URL     string
	Token   string // sent as a bearer token when set
	Timeout time.Duration
	Retries int
	Backoff time.Duration // first retry delay; later delays triple
}

// WebhookSink POSTs events to a collector. Each request carries the event's
// request id and word as X-WSD-* headers.
type WebhookSink struct {
	cfg    WebhookConfig
	client *http.Client
}

func NewWebhookSink(cfg WebhookConfig) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	return &WebhookSink{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (s *WebhookSink) Name() string { return "webhook:" + s.cfg.URL }

func (s *WebhookSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	delay := s.cfg.Backoff
	var lastErr error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			delay *= 3
		}
		lastErr = s.post(ctx, ev, payload)
		if lastErr == nil || errors.Is(lastErr, ErrRejected) {
			return lastErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return lastErr
}

func (s *WebhookSink) post(ctx context.Context, ev *Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-WSD-Request-ID", ev.RequestID)
	req.Header.Set("X-WSD-Word", ev.Word)
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout:
		return fmt.Errorf("status %d body=%q", resp.StatusCode, truncateBody(body))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d body=%q", ErrRejected, resp.StatusCode, truncateBody(body))
	default:
		return fmt.Errorf("status %d body=%q", resp.StatusCode, truncateBody(body))
	}
}

func (s *WebhookSink) Close(context.Context) error {
	return nil
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
