package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emberdata/smokewatch/internal/config"
	"github.com/emberdata/smokewatch/internal/httputil"
	"github.com/emberdata/smokewatch/internal/timeutil"
)

func testMessage() Message {
	return Message{
		CameraID:  "cam-1",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Title:     "Smoke detected",
		Body:      "cam-1 validated 12/11 patches",
	}
}

func TestNewSelectsProvider(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())

	cfg := config.EmptySettings()
	n, err := New(cfg, clock)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if n.Name() != "logonly" {
		t.Fatalf("default provider = %q, want logonly", n.Name())
	}

	provider := "push"
	endpoint := "https://push.example.com/send"
	cfg.NotifyProvider = &provider
	cfg.NotifyEndpoint = &endpoint
	n, err = New(cfg, clock)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if n.Name() != "push" {
		t.Fatalf("provider = %q, want push", n.Name())
	}

	cfg.NotifyEndpoint = nil
	if _, err := New(cfg, clock); err == nil {
		t.Fatal("push provider without endpoint must fail")
	}
}

func TestPushDeliversWithAuth(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	p := NewPush("https://push.example.com/send", "secret-token", 3, clock)
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, `{"ok":true}`)
	p.SetClient(mock)

	if err := p.Notify(context.Background(), testMessage()); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Fatalf("expected 1 request, got %d", mock.RequestCount())
	}
	req := mock.GetRequest(0)
	if got := req.Header.Get("Authorization"); got != "Bearer secret-token" {
		t.Fatalf("Authorization = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
}

func TestPushRetriesTransientFailures(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	p := NewPush("https://push.example.com/send", "", 3, clock)
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))
	mock.AddResponse(503, "overloaded")
	mock.AddResponse(200, "ok")
	p.SetClient(mock)

	if err := p.Notify(context.Background(), testMessage()); err != nil {
		t.Fatalf("notify failed after retries: %v", err)
	}
	if mock.RequestCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", mock.RequestCount())
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(sleeps))
	}
}

func TestPushGivesUpAfterMaxAttempts(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	p := NewPush("https://push.example.com/send", "", 2, clock)
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(500, "boom")
	mock.AddResponse(500, "boom")
	p.SetClient(mock)

	if err := p.Notify(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if mock.RequestCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", mock.RequestCount())
	}
}

func TestPushDoesNotRetryClientErrors(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	p := NewPush("https://push.example.com/send", "", 3, clock)
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(400, "bad payload")
	p.SetClient(mock)

	if err := p.Notify(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error for rejected alert")
	}
	if mock.RequestCount() != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", mock.RequestCount())
	}
}

type countingNotifier struct {
	calls       int
	statusCalls int
	err         error
}

func (c *countingNotifier) Name() string { return "counting" }
func (c *countingNotifier) Notify(context.Context, Message) error {
	c.calls++
	return c.err
}
func (c *countingNotifier) StatusUpdate(context.Context, string) error {
	c.statusCalls++
	return c.err
}

func TestThrottleSuppressesWithinInterval(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	inner := &countingNotifier{}
	th := NewThrottle(inner, 5*time.Minute, clock)
	ctx := context.Background()

	if err := th.Notify(ctx, testMessage()); err != nil {
		t.Fatalf("first alert failed: %v", err)
	}
	if err := th.Notify(ctx, testMessage()); err != nil {
		t.Fatalf("suppressed alert must not error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 delivery, got %d", inner.calls)
	}

	// A different camera is not affected by cam-1's cooldown.
	other := testMessage()
	other.CameraID = "cam-2"
	if err := th.Notify(ctx, other); err != nil {
		t.Fatalf("other camera failed: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 deliveries, got %d", inner.calls)
	}

	clock.Set(start.Add(5 * time.Minute))
	if err := th.Notify(ctx, testMessage()); err != nil {
		t.Fatalf("post-cooldown alert failed: %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 deliveries, got %d", inner.calls)
	}
}

func TestPushStatusUpdate(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	p := NewPush("https://push.example.com/send", "secret-token", 3, clock)
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(200, "ok")
	p.SetClient(mock)

	if err := p.StatusUpdate(context.Background(), "goroutines=12 heap_alloc=34MB"); err != nil {
		t.Fatalf("status update failed: %v", err)
	}
	if mock.RequestCount() != 1 {
		t.Fatalf("expected 1 request, got %d", mock.RequestCount())
	}
	req := mock.GetRequest(0)
	if got := req.Header.Get("Authorization"); got != "Bearer secret-token" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestThrottleStatusUpdateBypassesCooldown(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	inner := &countingNotifier{}
	th := NewThrottle(inner, 5*time.Minute, clock)
	ctx := context.Background()

	if err := th.Notify(ctx, testMessage()); err != nil {
		t.Fatalf("alert failed: %v", err)
	}
	// Alerts are now inside the cooldown, status updates are not.
	for i := 0; i < 3; i++ {
		if err := th.StatusUpdate(ctx, "healthy"); err != nil {
			t.Fatalf("status update failed: %v", err)
		}
	}
	if inner.statusCalls != 3 {
		t.Fatalf("expected 3 status deliveries, got %d", inner.statusCalls)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 alert delivery, got %d", inner.calls)
	}
}

func TestThrottleDoesNotAdvanceCooldownOnFailure(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	inner := &countingNotifier{err: errors.New("gateway down")}
	th := NewThrottle(inner, 5*time.Minute, clock)
	ctx := context.Background()

	if err := th.Notify(ctx, testMessage()); err == nil {
		t.Fatal("expected delivery error")
	}
	inner.err = nil
	if err := th.Notify(ctx, testMessage()); err != nil {
		t.Fatalf("retry after failure must go through: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", inner.calls)
	}
}
