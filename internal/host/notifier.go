// Package host signals the embedding Mini App host that the service is
// ready to serve.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ReadyNotifier delivers the one-time ready signal
type ReadyNotifier interface {
	Ready(ctx context.Context) error
}

// NopNotifier is used when no host is configured
type NopNotifier struct{}

func (NopNotifier) Ready(context.Context) error { return nil }

// WebhookNotifier POSTs the ready event to the host. Once a delivery
// succeeds later calls return nil immediately. Concurrent callers share
// the attempt in flight, and a failed attempt is forgotten so the next
// call starts over.
type WebhookNotifier struct {
	url        string
	app        string
	httpClient *http.Client
	policy     func() backoff.BackOff
	logger     *slog.Logger

	mu        sync.Mutex
	delivered bool
	inflight  *attempt
}

type attempt struct {
	done chan struct{}
	err  error
}

type readyEvent struct {
	Event string `json:"event"`
	App   string `json:"app"`
}

// DefaultPolicy retries for up to 30 seconds with exponential spacing
func DefaultPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// NewWebhookNotifier creates a notifier for url. A nil policy selects
// DefaultPolicy.
func NewWebhookNotifier(url, app string, policy func() backoff.BackOff, logger *slog.Logger) *WebhookNotifier {
	if policy == nil {
		policy = DefaultPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url:        url,
		app:        app,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		policy:     policy,
		logger:     logger,
	}
}

func (n *WebhookNotifier) Ready(ctx context.Context) error {
	n.mu.Lock()
	if n.delivered {
		n.mu.Unlock()
		return nil
	}
	a := n.inflight
	leader := a == nil
	if leader {
		a = &attempt{done: make(chan struct{})}
		n.inflight = a
	}
	n.mu.Unlock()

	if !leader {
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a.err = n.deliver(ctx)

	n.mu.Lock()
	n.delivered = a.err == nil
	n.inflight = nil
	n.mu.Unlock()
	close(a.done)

	return a.err
}

func (n *WebhookNotifier) deliver(ctx context.Context) error {
	body, err := json.Marshal(readyEvent{Event: "ready", App: n.app})
	if err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("host returned %d: %s", resp.StatusCode, respBody)
		default:
			return backoff.Permanent(fmt.Errorf("host rejected ready signal with %d: %s", resp.StatusCode, respBody))
		}
	}
	notify := func(err error, wait time.Duration) {
		n.logger.Warn("host ready signal failed, retrying", "url", n.url, "retry_in", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(n.policy(), ctx), notify); err != nil {
		n.logger.Error("host ready signal not delivered", "url", n.url, "error", err)
		return err
	}
	n.logger.Info("host notified ready", "url", n.url)
	return nil
}
