// Package notify delivers smoke alerts. Providers are selected by name
// from the service settings; all of them are rate limited per camera so
// a smouldering fire does not flood the channel.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/emberdata/smokewatch/internal/config"
	"github.com/emberdata/smokewatch/internal/monitoring"
	"github.com/emberdata/smokewatch/internal/timeutil"
)

// Message is one smoke alert.
type Message struct {
	CameraID  string    `json:"camera_id"`
	EventID   string    `json:"event_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}

// Notifier delivers alert messages and service status updates.
type Notifier interface {
	// Name identifies the provider ("logonly", "push").
	Name() string

	// Notify delivers the message. Implementations may block for retries;
	// the context bounds the total attempt.
	Notify(ctx context.Context, msg Message) error

	// StatusUpdate delivers a service health line. Status updates are
	// never throttled; callers pace them.
	StatusUpdate(ctx context.Context, status string) error
}

// New builds the configured notifier wrapped in a per-camera throttle.
func New(cfg *config.Settings, clock timeutil.Clock) (Notifier, error) {
	var inner Notifier
	switch provider := cfg.GetNotifyProvider(); provider {
	case "logonly":
		inner = &LogOnly{}
	case "push":
		if cfg.GetNotifyEndpoint() == "" {
			return nil, fmt.Errorf("push notifier requires notify_endpoint")
		}
		inner = NewPush(cfg.GetNotifyEndpoint(), cfg.GetNotifyToken(), cfg.GetNotifyMaxAttempts(), clock)
	default:
		return nil, fmt.Errorf("unknown notify provider %q", provider)
	}
	return NewThrottle(inner, cfg.GetNotifyMinInterval(), clock), nil
}

// LogOnly writes alerts to the service log. It is the default provider
// and the fallback for development.
type LogOnly struct{}

// Name implements Notifier.
func (*LogOnly) Name() string { return "logonly" }

// Notify implements Notifier.
func (*LogOnly) Notify(_ context.Context, msg Message) error {
	monitoring.Logf("[CAM:%s] ALERT %s: %s", msg.CameraID, msg.Title, msg.Body)
	return nil
}

// StatusUpdate implements Notifier.
func (*LogOnly) StatusUpdate(_ context.Context, status string) error {
	monitoring.Logf("STATUS %s", status)
	return nil
}
