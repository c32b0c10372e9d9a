// Package metrics collects per-camera sweep statistics for the
// dashboard: rolling latency summaries and outcome counters.
package metrics

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ringSize bounds the latency window per camera. At one sweep per
// second this is roughly four minutes of history.
const ringSize = 256

// Summary describes the rolling sweep latency distribution.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean_seconds"`
	Min   float64 `json:"min_seconds"`
	Max   float64 `json:"max_seconds"`
	P50   float64 `json:"p50_seconds"`
	P95   float64 `json:"p95_seconds"`
}

// CameraMetrics is one camera's sweep statistics.
type CameraMetrics struct {
	Sweeps     int64   `json:"sweeps"`
	Detections int64   `json:"detections"`
	Gated      int64   `json:"gated"`
	Skipped    int64   `json:"skipped"`
	Errors     int64   `json:"errors"`
	Latency    Summary `json:"latency"`
}

type cameraState struct {
	sweeps     int64
	detections int64
	gated      int64
	skipped    int64
	errors     int64

	durations []float64 // ring of sweep durations in seconds
	next      int
	filled    bool
}

// Collector accumulates metrics for all cameras. Safe for concurrent
// use.
type Collector struct {
	mu   sync.Mutex
	cams map[string]*cameraState
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{cams: make(map[string]*cameraState)}
}

func (c *Collector) state(cameraID string) *cameraState {
	s := c.cams[cameraID]
	if s == nil {
		s = &cameraState{durations: make([]float64, ringSize)}
		c.cams[cameraID] = s
	}
	return s
}

// ObserveSweep records one completed sweep and its duration.
func (c *Collector) ObserveSweep(cameraID string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state(cameraID)
	s.sweeps++
	s.durations[s.next] = d.Seconds()
	s.next++
	if s.next == ringSize {
		s.next = 0
		s.filled = true
	}
}

// IncDetection counts a smoke detection.
func (c *Collector) IncDetection(cameraID string) { c.inc(cameraID, func(s *cameraState) { s.detections++ }) }

// IncGated counts a motion-gated sweep.
func (c *Collector) IncGated(cameraID string) { c.inc(cameraID, func(s *cameraState) { s.gated++ }) }

// IncSkipped counts a sweep skipped because the frame was unchanged.
func (c *Collector) IncSkipped(cameraID string) { c.inc(cameraID, func(s *cameraState) { s.skipped++ }) }

// IncError counts a failed sweep.
func (c *Collector) IncError(cameraID string) { c.inc(cameraID, func(s *cameraState) { s.errors++ }) }

func (c *Collector) inc(cameraID string, fn func(*cameraState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state(cameraID))
}

// Snapshot returns a copy of every camera's current metrics.
func (c *Collector) Snapshot() map[string]CameraMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]CameraMetrics, len(c.cams))
	for id, s := range c.cams {
		out[id] = CameraMetrics{
			Sweeps:     s.sweeps,
			Detections: s.detections,
			Gated:      s.gated,
			Skipped:    s.skipped,
			Errors:     s.errors,
			Latency:    summarize(s.window()),
		}
	}
	return out
}

// Camera returns one camera's metrics; zero value if unknown.
func (c *Collector) Camera(cameraID string) CameraMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.cams[cameraID]
	if s == nil {
		return CameraMetrics{}
	}
	return CameraMetrics{
		Sweeps:     s.sweeps,
		Detections: s.detections,
		Gated:      s.gated,
		Skipped:    s.skipped,
		Errors:     s.errors,
		Latency:    summarize(s.window()),
	}
}

// window returns the valid portion of the duration ring.
func (s *cameraState) window() []float64 {
	if s.filled {
		out := make([]float64, ringSize)
		copy(out, s.durations)
		return out
	}
	out := make([]float64, s.next)
	copy(out, s.durations[:s.next])
	return out
}

func summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	sort.Float64s(samples)
	return Summary{
		Count: len(samples),
		Mean:  stat.Mean(samples, nil),
		Min:   samples[0],
		Max:   samples[len(samples)-1],
		P50:   stat.Quantile(0.5, stat.Empirical, samples, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, samples, nil),
	}
}
