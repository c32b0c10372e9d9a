package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emberdata/smokewatch/internal/config"
	"github.com/emberdata/smokewatch/internal/events"
	"github.com/emberdata/smokewatch/internal/metrics"
	"github.com/emberdata/smokewatch/internal/monitoring"
	"github.com/emberdata/smokewatch/internal/notify"
	"github.com/emberdata/smokewatch/internal/timeutil"
	"github.com/emberdata/smokewatch/internal/vision"
	"github.com/emberdata/smokewatch/internal/viz"
)

// EventSink persists detections. *events.Store implements it.
type EventSink interface {
	Record(ctx context.Context, e *events.Event) error
	MarkNotified(ctx context.Context, id string) error
}

// SnapshotSink writes detection snapshot images. *events.SnapshotWriter
// implements it.
type SnapshotSink interface {
	WriteFrame(eventID string, f vision.Frame) (string, error)
	WriteHeatmap(eventID, cameraID string, grid vision.Frame, detectedAt time.Time) (string, error)
}

// Runner drives the sweep: it walks the cameras in order, normalizes
// each camera's latest image, feeds the sequence buffer and runs the
// detector when a camera's buffer fills. One camera failing never stops
// the sweep.
type Runner struct {
	settings  *config.Settings
	frames    FrameGetter
	ops       vision.PatchOps
	detector  *vision.Detector
	buffer    *vision.SequenceBuffer
	stages    *viz.StageBuffer
	collector *metrics.Collector
	notifier  notify.Notifier
	sink      EventSink    // may be nil
	snapshots SnapshotSink // may be nil
	clock     timeutil.Clock

	lastFingerprint map[string]uint64
}

// RunnerOptions wires a Runner. Sink and Snapshots are optional.
type RunnerOptions struct {
	Settings  *config.Settings
	Frames    FrameGetter
	Ops       vision.PatchOps
	Stages    *viz.StageBuffer
	Collector *metrics.Collector
	Notifier  notify.Notifier
	Sink      EventSink
	Snapshots SnapshotSink
	Clock     timeutil.Clock
}

// NewRunner builds a runner from the options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Settings == nil {
		return nil, fmt.Errorf("runner requires settings")
	}
	if opts.Frames == nil {
		return nil, fmt.Errorf("runner requires a frame source")
	}
	if opts.Ops == nil {
		return nil, fmt.Errorf("runner requires a patch ops implementation")
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Stages == nil {
		opts.Stages = viz.NewStageBuffer()
	}
	if opts.Collector == nil {
		opts.Collector = metrics.NewCollector()
	}

	cfg := opts.Settings
	detector := vision.NewDetector(opts.Ops, vision.DetectorParams{
		SlidingWindow:        cfg.GetSlidingWindow(),
		SensitivityVal:       float32(cfg.GetSensitivityVal()),
		MotionThreshold:      float32(cfg.GetMotionThreshold()),
		MotionCountThreshold: cfg.GetMotionCountThreshold(),
		PatchesToValidate:    cfg.GetNPatchesValidate(),
		MotionGate:           cfg.GetMotionGate(),
	})

	return &Runner{
		settings:        cfg,
		frames:          opts.Frames,
		ops:             opts.Ops,
		detector:        detector,
		buffer:          vision.NewSequenceBuffer(cfg.GetNFramesValidation(), cfg.GetFrameRows(), cfg.GetFrameCols()),
		stages:          opts.Stages,
		collector:       opts.Collector,
		notifier:        opts.Notifier,
		sink:            opts.Sink,
		snapshots:       opts.Snapshots,
		clock:           opts.Clock,
		lastFingerprint: make(map[string]uint64),
	}, nil
}

// Run sweeps all cameras repeatedly, pausing sleep_time between rounds,
// until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	monitoring.Logf("sweep loop started (%d cameras, %s pause)",
		len(r.settings.EnabledCameras()), r.settings.GetSleepTime())
	for {
		if ctx.Err() != nil {
			monitoring.Logf("sweep loop stopped")
			return
		}
		r.SweepAll(ctx)
		select {
		case <-ctx.Done():
			monitoring.Logf("sweep loop stopped")
			return
		case <-r.clock.After(r.settings.GetSleepTime()):
		}
	}
}

// SweepAll runs one sweep over every enabled camera.
func (r *Runner) SweepAll(ctx context.Context) {
	for _, cam := range r.settings.EnabledCameras() {
		if ctx.Err() != nil {
			return
		}
		if err := r.Sweep(ctx, cam.ID); err != nil {
			r.collector.IncError(cam.ID)
			monitoring.Logf("[CAM:%s] sweep failed: %v", cam.ID, err)
		}
	}
}

// Sweep processes one camera's latest image through the full pipeline.
func (r *Runner) Sweep(ctx context.Context, cameraID string) error {
	img, ok := r.frames.Latest(cameraID)
	if !ok {
		monitoring.Debugf(1, "[CAM:%s] no frame yet", cameraID)
		return nil
	}
	start := r.clock.Now()

	frame, err := vision.Normalize(img, r.settings.GetFrameRows(), r.settings.GetFrameCols())
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	// An unchanged image means the grabber has nothing new; reprocessing
	// it would push duplicate frames into the sequence.
	fp := frame.Fingerprint()
	if prev, seen := r.lastFingerprint[cameraID]; seen && prev == fp {
		r.collector.IncSkipped(cameraID)
		return nil
	}
	r.lastFingerprint[cameraID] = fp

	r.stages.Set(cameraID, viz.StageOriginal, frame)

	// The buffer is a sliding window: once full, every new frame evicts
	// the oldest and the detector re-validates on the shifted sequence.
	r.buffer.Push(cameraID, frame)
	seq, full := r.buffer.Sequence(cameraID)
	if !full {
		monitoring.Debugf(1, "[CAM:%s] waiting for full frame sequence", cameraID)
		r.collector.ObserveSweep(cameraID, r.clock.Since(start))
		return nil
	}

	r.publishStages(cameraID, seq)
	if r.settings.ActiveAt(r.clock.Now()) {
		if err := r.validate(ctx, cameraID, seq, frame); err != nil {
			return err
		}
	} else {
		monitoring.Debugf(1, "[CAM:%s] detection inactive by schedule", cameraID)
	}

	r.collector.ObserveSweep(cameraID, r.clock.Since(start))
	return nil
}

// publishStages updates the dashboard stages derived from a full
// sequence: the current and base frames, their pixel difference, and the
// monitor-phase comparison panels against the base frame. Purely
// diagnostic; detection decisions come from the validated sequence.
func (r *Runner) publishStages(cameraID string, seq vision.Stack) {
	base, current := seq[0], seq[len(seq)-1]
	r.stages.Set(cameraID, viz.StageCurrent, current)
	r.stages.Set(cameraID, viz.StageBase, base)

	sw := r.settings.GetSlidingWindow()
	sensitivity := float32(r.settings.GetSensitivity())

	if diff := r.ops.TimeDifference(vision.Stack{base, current}); len(diff) == 1 {
		r.stages.Set(cameraID, viz.StageDifference, diff[0])
	}
	flag, wassPanel := r.ops.CompareDistributionDistance(base, current, sensitivity, sw)
	r.stages.Set(cameraID, viz.StageDifferenceWass, wassPanel)
	if flag == 1 {
		monitoring.Debugf(2, "[CAM:%s] frame pair exceeded sensitivity %.1f", cameraID, sensitivity)
	}
	_, meanPanel := r.ops.CompareMeanDifference(base, current, sensitivity, sw)
	r.stages.Set(cameraID, viz.StageMean, meanPanel)
}

// validate runs the detector on a full sequence and handles a positive
// result: snapshots, event record, alert.
func (r *Runner) validate(ctx context.Context, cameraID string, seq vision.Stack, frame vision.Frame) error {
	det, err := r.detector.CheckSequence(cameraID, seq)
	if err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if !det.MinDistance.Empty() {
		r.stages.Set(cameraID, viz.StageWasserstein, det.MinDistance)
		r.stages.Set(cameraID, viz.StageHeatmap, det.MinDistance)
	}
	if det.Gated {
		r.collector.IncGated(cameraID)
		return nil
	}
	if !det.Smoke() {
		return nil
	}

	r.collector.IncDetection(cameraID)
	detectedAt := r.clock.Now()
	event := &events.Event{
		ID:          uuid.NewString(),
		CameraID:    cameraID,
		DetectedAt:  detectedAt,
		MotionCount: det.MotionCount,
		CountA:      det.CountA,
		CountB:      det.CountB,
		MaxDistance: maxValue(det.MinDistance),
	}

	if r.snapshots != nil {
		if path, err := r.snapshots.WriteFrame(event.ID, frame); err != nil {
			monitoring.Logf("[CAM:%s] frame snapshot failed: %v", cameraID, err)
		} else {
			event.SnapshotFrame = path
		}
		if path, err := r.snapshots.WriteHeatmap(event.ID, cameraID, det.MinDistance, detectedAt); err != nil {
			monitoring.Logf("[CAM:%s] heatmap snapshot failed: %v", cameraID, err)
		} else {
			event.SnapshotHeatmap = path
		}
	}

	if r.sink != nil {
		if err := r.sink.Record(ctx, event); err != nil {
			return fmt.Errorf("record event: %w", err)
		}
	}

	if r.notifier != nil {
		msg := notify.Message{
			CameraID:  cameraID,
			EventID:   event.ID,
			Timestamp: detectedAt,
			Title:     "Smoke detected",
			Body: fmt.Sprintf("camera %s validated %d/%d patches (threshold %d)",
				cameraID, det.CountA, det.CountB, r.detector.Params().PatchesToValidate),
		}
		if err := r.notifier.Notify(ctx, msg); err != nil {
			monitoring.Logf("[CAM:%s] alert delivery failed: %v", cameraID, err)
		} else if r.sink != nil {
			if err := r.sink.MarkNotified(ctx, event.ID); err != nil {
				monitoring.Logf("[CAM:%s] mark notified failed: %v", cameraID, err)
			}
		}
	}
	return nil
}

func maxValue(f vision.Frame) float64 {
	if f.Empty() {
		return 0
	}
	maxV := f.Pix[0]
	for _, v := range f.Pix {
		if v > maxV {
			maxV = v
		}
	}
	return float64(maxV)
}
