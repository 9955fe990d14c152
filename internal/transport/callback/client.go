// Package callback delivers run events to the collaborator's callback endpoint.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/event"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/metrics"
)

// HeaderKey carries the per-request callback secret.
const HeaderKey = "X-AI-CALLBACK-KEY"

// DefaultTimeout bounds a single POST attempt.
const DefaultTimeout = 10 * time.Second

// DefaultRetryDelays is the wait before each attempt: immediate, then 0.5s, 1s, 2s.
var DefaultRetryDelays = []time.Duration{0, 500 * time.Millisecond, time.Second, 2 * time.Second}

// Config configures delivery.
type Config struct {
	Timeout     time.Duration
	RetryDelays []time.Duration
	Logger      *zap.Logger
}

// Client posts events with a fixed retry schedule. Safe for concurrent use.
type Client struct {
	http   *http.Client
	delays []time.Duration
	logger *zap.Logger
}

// New creates a delivery client. Zero values fall back to the defaults.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	delays := cfg.RetryDelays
	if len(delays) == 0 {
		delays = DefaultRetryDelays
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		delays: delays,
		logger: logger,
	}
}

// ValidateEndpoint accepts absolute http and https URLs only.
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCallback, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", domain.ErrInvalidCallback)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", domain.ErrInvalidCallback)
	}
	return nil
}

// NewSink binds the client to one request's endpoint and key.
func (c *Client) NewSink(endpoint, key string) (event.Sink, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	return &Sink{client: c, endpoint: endpoint, key: key}, nil
}

// Sink delivers the events of one request.
type Sink struct {
	client   *Client
	endpoint string
	key      string
}

// Deliver posts e, retrying per schedule. Exhausted retries return domain.ErrDeliveryFailed.
func (s *Sink) Deliver(ctx context.Context, e event.Event) error {
	body, err := json.Marshal(toPayload(e))
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}
	return s.client.post(ctx, s.endpoint, s.key, body)
}

func (c *Client) post(ctx context.Context, endpoint, key string, body []byte) error {
	var lastErr error
	for attempt, delay := range c.delays {
		if err := wait(ctx, delay); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
		}

		err := c.attempt(ctx, endpoint, key, body)
		if err == nil {
			metrics.DeliveryAttemptsTotal.WithLabelValues("success").Inc()
			c.logger.Debug("Callback delivered", zap.Int("attempt", attempt+1))
			return nil
		}
		metrics.DeliveryAttemptsTotal.WithLabelValues("failure").Inc()
		c.logger.Warn("Callback attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %w", domain.ErrDeliveryFailed, len(c.delays), lastErr)
}

func (c *Client) attempt(ctx context.Context, endpoint, key string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderKey, key)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
