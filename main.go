package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"sync"
	"time"

	"os/signal"
	"syscall"

	"github.com/emberdata/smokewatch/internal/api"
	"github.com/emberdata/smokewatch/internal/config"
	"github.com/emberdata/smokewatch/internal/events"
	"github.com/emberdata/smokewatch/internal/metrics"
	"github.com/emberdata/smokewatch/internal/monitoring"
	"github.com/emberdata/smokewatch/internal/notify"
	"github.com/emberdata/smokewatch/internal/pipeline"
	"github.com/emberdata/smokewatch/internal/version"
	"github.com/emberdata/smokewatch/internal/vision"
	"github.com/emberdata/smokewatch/internal/viz"
)

var (
	configPath = flag.String("config", "", "Path to settings JSON (defaults apply when empty)")
	listen     = flag.String("listen", ":8080", "Listen address")
	devMode    = flag.Bool("dev", false, "Run against synthetic camera sources")
	dbFile     = flag.String("db", "smoke_events.db", "SQLite event database path (empty disables event storage)")
	verbosity  = flag.Int("verbosity", 0, "Debug logging level")
)

func loadSettings() (*config.Settings, error) {
	if *configPath == "" {
		return config.EmptySettings(), nil
	}
	return config.LoadSettings(*configPath)
}

func buildOps(cfg *config.Settings) (vision.PatchOps, error) {
	if cfg.GetPatchOps() == vision.OpsParallel && cfg.GetWorkers() > 0 {
		return vision.NewParallelOps(cfg.GetWorkers()), nil
	}
	return vision.NewPatchOps(cfg.GetPatchOps())
}

func main() {
	flag.Parse()
	monitoring.SetVerbosity(*verbosity)
	monitoring.Logf("smokewatch %s (%s)", version.Version, version.GitSHA)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadSettings()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// In dev mode without a config file, invent two synthetic cameras so
	// the whole pipeline can run with zero setup.
	if *devMode && len(cfg.Cameras) == 0 {
		cfg.Cameras = []config.CameraConfig{
			{ID: "synth-1", URL: "synthetic://calm"},
			{ID: "synth-2", URL: "synthetic://plume"},
		}
	}
	if len(cfg.EnabledCameras()) == 0 {
		log.Fatal("no enabled cameras configured")
	}

	ops, err := buildOps(cfg)
	if err != nil {
		log.Fatalf("failed to build patch ops: %v", err)
	}

	var source pipeline.Source
	if *devMode {
		source = pipeline.NewSyntheticSource(cfg.GetFrameRows(), cfg.GetFrameCols())
	} else {
		source = pipeline.NewHTTPStillSource()
	}

	var store *events.Store
	if *dbFile != "" {
		store, err = events.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open event database: %v", err)
		}
		defer store.Close()
	}

	snapshots, err := events.NewSnapshotWriter(cfg.GetSnapshotDir())
	if err != nil {
		log.Fatalf("failed to prepare snapshot directory: %v", err)
	}

	notifier, err := notify.New(cfg, nil)
	if err != nil {
		log.Fatalf("failed to build notifier: %v", err)
	}

	stages := viz.NewStageBuffer()
	collector := metrics.NewCollector()
	hub := pipeline.NewHub(source, cfg.EnabledCameras(), cfg.GetSleepTime(), nil)

	opts := pipeline.RunnerOptions{
		Settings:  cfg,
		Frames:    hub,
		Ops:       ops,
		Stages:    stages,
		Collector: collector,
		Notifier:  notifier,
		Snapshots: snapshots,
	}
	if store != nil {
		opts.Sink = store
	}
	runner, err := pipeline.NewRunner(opts)
	if err != nil {
		log.Fatalf("failed to build runner: %v", err)
	}

	var eventLister api.EventLister
	if store != nil {
		eventLister = store
	}
	server := api.NewServer(cfg, stages, eventLister, collector, nil)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// frame grabbers, one goroutine per camera
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
		monitoring.Logf("frame hub stopped")
	}()

	// detection sweep loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	// periodic runtime stats
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitoring.SysMon(ctx, nil, time.Minute, notifier.StatusUpdate)
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(server.ServeMux()),
		}

		go func() {
			monitoring.Logf("HTTP server listening on %s", *listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	monitoring.Logf("graceful shutdown complete")
}
