// Package viz holds the per-camera visualization stages the dashboard
// serves: the latest frame of each named processing stage, rendered to
// grayscale PNG on demand.
package viz

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"

	"github.com/emberdata/smokewatch/internal/vision"
)

// Stage names published by the sweep loop. Not a closed set; the API
// serves whatever stages a camera has. Wasserstein and heatmap both hold
// the validation's per-patch minimum distance map; difference_wass and
// mean hold the monitor-phase comparison panels against the sequence
// base frame.
const (
	StageOriginal       = "original"
	StageCurrent        = "current"
	StageBase           = "base"
	StageDifference     = "difference"
	StageWasserstein    = "wasserstein"
	StageMean           = "mean"
	StageDifferenceWass = "difference_wass"
	StageHeatmap        = "heatmap"
)

// StageBuffer stores the most recent frame per (camera, stage). Writes
// replace; there is no history. All methods are safe for concurrent use.
type StageBuffer struct {
	mu     sync.RWMutex
	stages map[string]map[string]vision.Frame
}

// NewStageBuffer creates an empty stage buffer.
func NewStageBuffer() *StageBuffer {
	return &StageBuffer{stages: make(map[string]map[string]vision.Frame)}
}

// Set stores a copy of the frame as the camera's latest for the stage.
// Empty frames are ignored.
func (b *StageBuffer) Set(cameraID, stage string, f vision.Frame) {
	if f.Empty() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cam := b.stages[cameraID]
	if cam == nil {
		cam = make(map[string]vision.Frame)
		b.stages[cameraID] = cam
	}
	cam[stage] = f.Clone()
}

// Get returns a copy of the camera's latest frame for the stage.
func (b *StageBuffer) Get(cameraID, stage string) (vision.Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.stages[cameraID][stage]
	if !ok {
		return vision.Frame{}, false
	}
	return f.Clone(), true
}

// Stages returns the sorted stage names available for a camera.
func (b *StageBuffer) Stages(cameraID string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cam := b.stages[cameraID]
	out := make([]string, 0, len(cam))
	for name := range cam {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Cameras returns the sorted camera IDs with at least one stage.
func (b *StageBuffer) Cameras() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.stages))
	for id := range b.stages {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RenderPNG encodes a frame as an 8-bit grayscale PNG. Values are
// linearly mapped from the frame's own min/max so low-contrast statistic
// panels stay visible; a flat frame renders black.
func RenderPNG(f vision.Frame) ([]byte, error) {
	if f.Empty() {
		return nil, fmt.Errorf("cannot render empty frame")
	}
	minV, maxV := f.Pix[0], f.Pix[0]
	for _, v := range f.Pix {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	scale := float32(0)
	if maxV > minV {
		scale = 255 / (maxV - minV)
	}
	img := image.NewGray(image.Rect(0, 0, f.Cols, f.Rows))
	for y := 0; y < f.Rows; y++ {
		for x := 0; x < f.Cols; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((f.At(y, x) - minV) * scale)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
