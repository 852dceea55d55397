package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"recipe-service/domain"
	"recipe-service/internal/utils/logger"
)

const (
	correlationHeader = "X-Correlation-Id"
	defaultTimeout    = 10 * time.Second
	tripAfter         = 5
)

type (
	Options struct {
		URL     string
		Timeout time.Duration
		// OpenFor is how long the breaker rejects calls after tripping.
		OpenFor time.Duration
	}

	// Notifier posts JSON payloads to a single webhook URL. Consecutive
	// failures open a circuit breaker so a dead endpoint fails fast.
	Notifier struct {
		url    string
		client *http.Client
		cb     *gobreaker.CircuitBreaker[struct{}]
	}
)

func NewNotifier(opts Options, log *logger.Logger) (*Notifier, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, fmt.Errorf("missing webhook url")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	log = log.With("component", "webhook")

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "moderation-webhook",
		MaxRequests: 1,
		Timeout:     opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: opts.Timeout},
		cb:     cb,
	}, nil
}

// Notify posts payload as JSON. Any transport error, non-2xx status or open
// breaker is reported as domain.ErrWebhookFailed.
func (n *Notifier) Notify(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	_, err = n.cb.Execute(func() (struct{}, error) {
		return struct{}{}, n.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWebhookFailed, err)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if id := logger.CorrelationID(ctx); id != "" {
		req.Header.Set(correlationHeader, id)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
