package events

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/emberdata/smokewatch/internal/vision"
	"github.com/emberdata/smokewatch/internal/viz"
)

// SnapshotWriter writes the images stored alongside an event: the raw
// triggering frame as grayscale PNG and the per-patch minimum distance
// grid as a heatmap.
type SnapshotWriter struct {
	dir string
}

// NewSnapshotWriter creates a writer rooted at dir, creating it if
// missing.
func NewSnapshotWriter(dir string) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotWriter{dir: dir}, nil
}

// Dir returns the snapshot root directory.
func (w *SnapshotWriter) Dir() string { return w.dir }

// WriteFrame writes the triggering frame and returns the file path.
func (w *SnapshotWriter) WriteFrame(eventID string, f vision.Frame) (string, error) {
	data, err := viz.RenderPNG(f)
	if err != nil {
		return "", fmt.Errorf("render frame snapshot: %w", err)
	}
	path := filepath.Join(w.dir, eventID+"_frame.png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write frame snapshot: %w", err)
	}
	return path, nil
}

// WriteHeatmap plots the per-patch minimum distance grid and returns
// the file path.
func (w *SnapshotWriter) WriteHeatmap(eventID, cameraID string, grid vision.Frame, detectedAt time.Time) (string, error) {
	if grid.Empty() {
		return "", fmt.Errorf("cannot plot empty grid")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s min distribution distance (%s)",
		cameraID, detectedAt.Format("2006-01-02 15:04:05"))
	p.X.Label.Text = "Patch column"
	p.Y.Label.Text = "Patch row"

	hm := plotter.NewHeatMap(frameGrid{grid}, palette.Heat(16, 1))
	p.Add(hm)

	path := filepath.Join(w.dir, eventID+"_heatmap.png")
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save heatmap: %w", err)
	}
	return path, nil
}

// frameGrid adapts a vision.Frame to plotter.GridXYZ. The row axis is
// flipped in Z so frame row 0 plots at the top while the Y coordinates
// stay increasing, which HeatMap requires.
type frameGrid struct {
	f vision.Frame
}

func (g frameGrid) Dims() (c, r int)   { return g.f.Cols, g.f.Rows }
func (g frameGrid) X(c int) float64    { return float64(c) }
func (g frameGrid) Y(r int) float64    { return float64(r) }
func (g frameGrid) Z(c, r int) float64 { return float64(g.f.At(g.f.Rows-1-r, c)) }
