package api

import (
	"net/http"
	"strconv"

	"github.com/emberdata/smokewatch/internal/httputil"
	"github.com/emberdata/smokewatch/internal/viz"
)

// cameraInfo is one camera's dashboard summary.
type cameraInfo struct {
	ID      string   `json:"id"`
	Enabled bool     `json:"enabled"`
	Stages  []string `json:"stages"`
	Events  int      `json:"events"`
}

func (s *Server) listCameras(w http.ResponseWriter, r *http.Request) {
	var counts map[string]int
	if s.store != nil {
		var err error
		counts, err = s.store.CountByCamera(r.Context())
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
	}

	out := make([]cameraInfo, 0, len(s.settings.Cameras))
	for _, cam := range s.settings.Cameras {
		out = append(out, cameraInfo{
			ID:      cam.ID,
			Enabled: cam.IsEnabled(),
			Stages:  s.stages.Stages(cam.ID),
			Events:  counts[cam.ID],
		})
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httputil.NotFound(w, "event storage disabled")
		return
	}

	limit := 50 // default
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}
	cameraID := r.URL.Query().Get("camera_id")

	list, err := s.store.List(r.Context(), cameraID, limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, list)
}

func (s *Server) showMetrics(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.collector.Snapshot())
}

func (s *Server) serveFrame(w http.ResponseWriter, r *http.Request) {
	cameraID := r.PathValue("camera")
	stage := r.PathValue("stage")

	frame, ok := s.stages.Get(cameraID, stage)
	if !ok {
		httputil.NotFound(w, "no frame for camera/stage")
		return
	}
	data, err := viz.RenderPNG(frame)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
