package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/emberdata/smokewatch/internal/httputil"
	"github.com/emberdata/smokewatch/internal/monitoring"
	"github.com/emberdata/smokewatch/internal/timeutil"
)

// Push delivers alerts as JSON POSTs to a push gateway. Transient
// failures (transport errors and 5xx responses) are retried with a flat
// backoff up to maxAttempts; 4xx responses fail immediately since a
// retry cannot fix the request.
type Push struct {
	endpoint    string
	token       string
	maxAttempts int
	backoff     time.Duration
	client      httputil.HTTPClient
	clock       timeutil.Clock
}

// NewPush creates a push notifier for the given gateway endpoint.
func NewPush(endpoint, token string, maxAttempts int, clock timeutil.Clock) *Push {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Push{
		endpoint:    endpoint,
		token:       token,
		maxAttempts: maxAttempts,
		backoff:     2 * time.Second,
		client:      httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second}),
		clock:       clock,
	}
}

// SetClient replaces the HTTP client, for tests.
func (p *Push) SetClient(c httputil.HTTPClient) { p.client = c }

// Name implements Notifier.
func (*Push) Name() string { return "push" }

// Notify implements Notifier.
func (p *Push) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return p.deliver(ctx, "CAM:"+msg.CameraID, payload)
}

// StatusUpdate implements Notifier. Status lines go to the same gateway
// as alerts, as a message without a camera.
func (p *Push) StatusUpdate(ctx context.Context, status string) error {
	payload, err := json.Marshal(Message{
		Timestamp: p.clock.Now(),
		Title:     "Status update",
		Body:      status,
	})
	if err != nil {
		return fmt.Errorf("marshal status update: %w", err)
	}
	return p.deliver(ctx, "status", payload)
}

func (p *Push) deliver(ctx context.Context, label string, payload []byte) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = p.send(ctx, payload)
		if lastErr == nil {
			return nil
		}
		var permErr *permanentError
		if errors.As(lastErr, &permErr) {
			return permErr.err
		}
		monitoring.Logf("[%s] push attempt %d/%d failed: %v", label, attempt, p.maxAttempts, lastErr)
		if attempt < p.maxAttempts {
			p.clock.Sleep(p.backoff)
		}
	}
	return fmt.Errorf("push delivery failed after %d attempts: %w", p.maxAttempts, lastErr)
}

func (p *Push) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &permanentError{fmt.Errorf("build push request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &permanentError{fmt.Errorf("push gateway rejected alert: %s", resp.Status)}
	default:
		return fmt.Errorf("push gateway error: %s", resp.Status)
	}
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
