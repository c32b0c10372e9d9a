package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/emberdata/smokewatch/internal/timeutil"
)

// StatusFunc forwards a health line to an external channel, typically a
// notifier's status update. A nil StatusFunc disables forwarding.
type StatusFunc func(ctx context.Context, status string) error

// SysMon periodically logs process health: goroutine count, heap usage
// and GC activity. Each snapshot is also handed to status when set. It
// runs until the context is cancelled.
func SysMon(ctx context.Context, clock timeutil.Clock, interval time.Duration, status StatusFunc) {
	if interval <= 0 {
		interval = time.Minute
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			stats := RuntimeStats()
			Logf("sysmon: %s", stats)
			if status != nil {
				if err := status(ctx, stats); err != nil {
					Logf("sysmon: status update failed: %v", err)
				}
			}
		}
	}
}

// RuntimeStats returns one snapshot of the runtime counters.
func RuntimeStats() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("goroutines=%d heap_alloc=%dMB heap_sys=%dMB num_gc=%d",
		runtime.NumGoroutine(), m.HeapAlloc/(1<<20), m.HeapSys/(1<<20), m.NumGC)
}
