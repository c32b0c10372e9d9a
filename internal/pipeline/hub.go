package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/emberdata/smokewatch/internal/config"
	"github.com/emberdata/smokewatch/internal/monitoring"
	"github.com/emberdata/smokewatch/internal/timeutil"
	"github.com/emberdata/smokewatch/internal/vision"
)

// FrameGetter is the read side of the hub, all the runner needs.
type FrameGetter interface {
	// Latest returns the camera's most recent image, if any has arrived.
	Latest(cameraID string) (vision.Image, bool)
}

// Hub runs one grabber goroutine per camera, each polling its source
// and keeping only the newest image. A slow or dead camera never blocks
// the others or the sweep loop; the runner just keeps seeing that
// camera's last image (and skips it by fingerprint).
type Hub struct {
	source   Source
	cams     []config.CameraConfig
	interval time.Duration
	clock    timeutil.Clock

	mu     sync.RWMutex
	latest map[string]vision.Image
}

// NewHub creates a hub polling the source at the given interval for
// every enabled camera.
func NewHub(source Source, cams []config.CameraConfig, interval time.Duration, clock timeutil.Clock) *Hub {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		source:   source,
		cams:     cams,
		interval: interval,
		clock:    clock,
		latest:   make(map[string]vision.Image),
	}
}

// Run starts the grabbers and blocks until the context is cancelled and
// all grabbers have stopped.
func (h *Hub) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, cam := range h.cams {
		wg.Add(1)
		go func(cam config.CameraConfig) {
			defer wg.Done()
			h.grabLoop(ctx, cam)
		}(cam)
	}
	wg.Wait()
}

func (h *Hub) grabLoop(ctx context.Context, cam config.CameraConfig) {
	monitoring.Logf("[CAM:%s] grabber started (%s source)", cam.ID, h.source.Name())
	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	h.grabOnce(ctx, cam)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[CAM:%s] grabber stopped", cam.ID)
			return
		case <-ticker.C():
			h.grabOnce(ctx, cam)
		}
	}
}

func (h *Hub) grabOnce(ctx context.Context, cam config.CameraConfig) {
	img, err := h.source.Grab(ctx, cam)
	if err != nil {
		if ctx.Err() == nil {
			monitoring.Logf("[CAM:%s] grab failed: %v", cam.ID, err)
		}
		return
	}
	h.mu.Lock()
	h.latest[cam.ID] = img
	h.mu.Unlock()
}

// Latest implements FrameGetter.
func (h *Hub) Latest(cameraID string) (vision.Image, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	img, ok := h.latest[cameraID]
	return img, ok
}
