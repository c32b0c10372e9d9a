package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/emberdata/smokewatch/internal/httputil"
	"github.com/emberdata/smokewatch/internal/viz"
)

// debugHeatmap renders an interactive heatmap (HTML) of a camera's patch
// statistic stage using go-echarts. This is a debugging-only endpoint
// (no auth) to eyeball detection behavior without the dashboard UI.
// Query params:
//   - camera_id (required)
//   - stage (optional; default "heatmap")
func (s *Server) debugHeatmap(w http.ResponseWriter, r *http.Request) {
	cameraID := r.URL.Query().Get("camera_id")
	if cameraID == "" {
		httputil.BadRequest(w, "missing 'camera_id' parameter")
		return
	}
	stage := r.URL.Query().Get("stage")
	if stage == "" {
		stage = viz.StageHeatmap
	}

	frame, ok := s.stages.Get(cameraID, stage)
	if !ok {
		httputil.NotFound(w, "no frame for camera/stage")
		return
	}

	// Patch grids are small; pixel stages are downsampled by stride to
	// keep the page responsive.
	stride := 1
	const maxCells = 10000
	for (frame.Rows/stride)*(frame.Cols/stride) > maxCells {
		stride++
	}

	data := make([]opts.HeatMapData, 0, (frame.Rows/stride)*(frame.Cols/stride))
	maxV := float32(0)
	xLabels := make([]string, 0, frame.Cols/stride)
	yLabels := make([]string, 0, frame.Rows/stride)
	for x := 0; x < frame.Cols; x += stride {
		xLabels = append(xLabels, strconv.Itoa(x))
	}
	for y := 0; y < frame.Rows; y += stride {
		yLabels = append(yLabels, strconv.Itoa(y))
	}
	for y := 0; y < frame.Rows; y += stride {
		for x := 0; x < frame.Cols; x += stride {
			v := frame.At(y, x)
			if v > maxV {
				maxV = v
			}
			// ECharts heatmap rows run bottom-up; flip so frame row 0
			// lands on top.
			data = append(data, opts.HeatMapData{
				Value: [3]interface{}{x / stride, (frame.Rows-1-y)/stride, v},
			})
		}
	}
	if maxV == 0 {
		maxV = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Smoke Watch Heatmap", Theme: "dark", Width: "1100px", Height: "700px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s / %s", cameraID, stage),
			Subtitle: fmt.Sprintf("shape=(%d,%d) stride=%d", frame.Rows, frame.Cols, stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xLabels}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yLabels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        maxV,
			InRange: &opts.VisualMapInRange{Color: []string{
				"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
				"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	hm.AddSeries(stage, data)

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
