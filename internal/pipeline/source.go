// Package pipeline orchestrates the per-camera sweep: grab, normalize,
// buffer, detect, publish, alert.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/emberdata/smokewatch/internal/config"
	"github.com/emberdata/smokewatch/internal/httputil"
	"github.com/emberdata/smokewatch/internal/vision"
)

// Source produces raw camera images. Implementations block at most for
// one grab; the hub handles pacing and retries.
type Source interface {
	// Name identifies the source kind ("http", "synthetic").
	Name() string

	// Grab fetches the camera's current image.
	Grab(ctx context.Context, cam config.CameraConfig) (vision.Image, error)
}

// HTTPStillSource polls camera snapshot URLs (JPEG or PNG stills, the
// usual IP-camera /snapshot.jpg endpoint) and converts them to
// single-channel images.
type HTTPStillSource struct {
	client httputil.HTTPClient
}

// NewHTTPStillSource creates an HTTP snapshot source.
func NewHTTPStillSource() *HTTPStillSource {
	return &HTTPStillSource{
		client: httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second}),
	}
}

// SetClient replaces the HTTP client, for tests.
func (s *HTTPStillSource) SetClient(c httputil.HTTPClient) { s.client = c }

// Name implements Source.
func (*HTTPStillSource) Name() string { return "http" }

// Grab implements Source.
func (s *HTTPStillSource) Grab(ctx context.Context, cam config.CameraConfig) (vision.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cam.URL, nil)
	if err != nil {
		return vision.Image{}, fmt.Errorf("build snapshot request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return vision.Image{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return vision.Image{}, fmt.Errorf("snapshot fetch returned %s", resp.Status)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return vision.Image{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return fromImage(img), nil
}

// fromImage converts a decoded image to a single-channel byte image
// using the standard library's luma conversion.
func fromImage(img image.Image) vision.Image {
	bounds := img.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	out := vision.Image{Rows: rows, Cols: cols, Channels: 1, Data: make([]byte, rows*cols)}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; same BT.601 weights as the
			// BGR path in vision.Image.Grayscale.
			out.Data[i] = byte((299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000)
			i++
		}
	}
	return out
}

// SyntheticSource generates a drifting, slowly brightening plume per
// camera. It stands in for real cameras in dev mode and demos; detection
// fires within the first few sequences.
type SyntheticSource struct {
	rows, cols int

	mu    sync.Mutex
	ticks map[string]int
}

// NewSyntheticSource creates a synthetic source producing frames of the
// given shape.
func NewSyntheticSource(rows, cols int) *SyntheticSource {
	return &SyntheticSource{rows: rows, cols: cols, ticks: make(map[string]int)}
}

// Name implements Source.
func (*SyntheticSource) Name() string { return "synthetic" }

// Grab implements Source. Each call advances the camera's scene by one
// frame.
func (s *SyntheticSource) Grab(_ context.Context, cam config.CameraConfig) (vision.Image, error) {
	s.mu.Lock()
	tick := s.ticks[cam.ID]
	s.ticks[cam.ID]++
	s.mu.Unlock()

	seed := uint64(1)
	for _, c := range cam.ID {
		seed = seed*31 + uint64(c)
	}
	frame := vision.PlumeFrame(tick, s.rows, s.cols, seed)

	out := vision.Image{Rows: s.rows, Cols: s.cols, Channels: 1, Data: make([]byte, s.rows*s.cols)}
	for i, v := range frame.Pix {
		out.Data[i] = byte(v)
	}
	return out, nil
}
