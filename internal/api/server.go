// Package api serves the dashboard and debug HTTP surface.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/emberdata/smokewatch/internal/config"
	"github.com/emberdata/smokewatch/internal/events"
	"github.com/emberdata/smokewatch/internal/httputil"
	"github.com/emberdata/smokewatch/internal/metrics"
	"github.com/emberdata/smokewatch/internal/monitoring"
	"github.com/emberdata/smokewatch/internal/timeutil"
	"github.com/emberdata/smokewatch/internal/version"
	"github.com/emberdata/smokewatch/internal/viz"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// EventLister is the read side of the events store the API needs.
// *events.Store implements it.
type EventLister interface {
	List(ctx context.Context, cameraID string, limit int) ([]events.Event, error)
	CountByCamera(ctx context.Context) (map[string]int, error)
}

// Server exposes pipeline state over HTTP. All state is read-only; the
// sweep loop owns the writes.
type Server struct {
	settings  *config.Settings
	stages    *viz.StageBuffer
	store     EventLister // may be nil when event storage is disabled
	collector *metrics.Collector
	clock     timeutil.Clock
	startedAt time.Time
}

// NewServer creates the API server.
func NewServer(settings *config.Settings, stages *viz.StageBuffer, store EventLister, collector *metrics.Collector, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		settings:  settings,
		stages:    stages,
		store:     store,
		collector: collector,
		clock:     clock,
		startedAt: clock.Now(),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /api/settings", s.showSettings)
	mux.HandleFunc("GET /api/cameras", s.listCameras)
	mux.HandleFunc("GET /api/events", s.listEvents)
	mux.HandleFunc("GET /api/metrics", s.showMetrics)
	mux.HandleFunc("GET /api/frames/{camera}/{stage}", s.serveFrame)
	mux.HandleFunc("GET /debug/heatmap", s.debugHeatmap)
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]any{
		"status":         "ok",
		"version":        version.Version,
		"git_sha":        version.GitSHA,
		"uptime_seconds": s.clock.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) showSettings(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.settings)
}
