package notify

import (
	"context"
	"sync"
	"time"

	"github.com/emberdata/smokewatch/internal/monitoring"
	"github.com/emberdata/smokewatch/internal/timeutil"
)

// Throttle wraps a notifier with a per-camera minimum interval. The
// first alert for a camera always goes through; subsequent alerts inside
// the interval are dropped silently, since smoke that keeps burning
// keeps re-triggering every sweep.
type Throttle struct {
	inner    Notifier
	interval time.Duration
	clock    timeutil.Clock

	mu   sync.Mutex
	last map[string]time.Time
}

// NewThrottle wraps the notifier. A non-positive interval disables
// throttling.
func NewThrottle(inner Notifier, interval time.Duration, clock timeutil.Clock) *Throttle {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Throttle{
		inner:    inner,
		interval: interval,
		clock:    clock,
		last:     make(map[string]time.Time),
	}
}

// Name implements Notifier.
func (t *Throttle) Name() string { return t.inner.Name() }

// Notify implements Notifier. The cooldown timestamp is only advanced on
// successful delivery, so a failed push does not silence the camera.
func (t *Throttle) Notify(ctx context.Context, msg Message) error {
	if t.interval > 0 {
		t.mu.Lock()
		last, seen := t.last[msg.CameraID]
		now := t.clock.Now()
		if seen && now.Sub(last) < t.interval {
			t.mu.Unlock()
			monitoring.Debugf(1, "[CAM:%s] alert suppressed by cooldown (%s remaining)",
				msg.CameraID, t.interval-now.Sub(last))
			return nil
		}
		t.mu.Unlock()
	}

	if err := t.inner.Notify(ctx, msg); err != nil {
		return err
	}

	t.mu.Lock()
	t.last[msg.CameraID] = t.clock.Now()
	t.mu.Unlock()
	return nil
}

// StatusUpdate implements Notifier. Status updates bypass the cooldown;
// they carry no camera and their cadence is the caller's.
func (t *Throttle) StatusUpdate(ctx context.Context, status string) error {
	return t.inner.StatusUpdate(ctx, status)
}
