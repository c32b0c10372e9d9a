package vision

import (
	"fmt"

	"github.com/emberdata/smokewatch/internal/monitoring"
)

// DetectorParams holds the validation-phase tuning knobs. Values map
// one-to-one onto the service settings; see internal/config for defaults.
type DetectorParams struct {
	// SlidingWindow is the patch side length in pixels.
	SlidingWindow int
	// SensitivityVal is the per-patch distribution-distance floor a patch
	// must stay at or above (minimum over a half-window) to count toward
	// validation.
	SensitivityVal float32
	// MotionThreshold is the per-pixel absolute frame-difference level
	// above which a pixel counts as moving.
	MotionThreshold float32
	// MotionCountThreshold is the number of moving pixels at which the
	// sequence is considered too turbulent to validate (camera shake,
	// large object movement) and the gate short-circuits to no-smoke.
	MotionCountThreshold int
	// PatchesToValidate is the patch count each half-window must strictly
	// exceed for a smoke decision.
	PatchesToValidate int
	// MotionGate applies the motion short-circuit inside CheckSequence.
	// Callers that gate externally disable it; the validation logic is a
	// single code path either way.
	MotionGate bool
}

// Detection is the outcome of one validation pass over a full sequence.
type Detection struct {
	// Flag is 1 when smoke was detected, 0 otherwise.
	Flag int
	// MinDistance is the per-patch minimum distribution distance over the
	// whole sequence, returned in every branch for dashboard heatmaps.
	MinDistance Frame
	// MotionCount is the number of pixels whose frame-to-frame change
	// exceeded MotionThreshold.
	MotionCount int
	// Gated is true when the motion gate short-circuited validation.
	Gated bool
	// CountA and CountB are the per-half validated patch counts; zero when
	// the gate fired.
	CountA, CountB int
}

// Smoke reports whether the detection flagged smoke.
func (d Detection) Smoke() bool { return d.Flag == 1 }

// Detector runs the two-phase validation decision over full frame
// sequences. It holds no per-sequence state: a sequence is consumed by a
// single CheckSequence call and never retained.
type Detector struct {
	ops    PatchOps
	params DetectorParams
}

// NewDetector creates a detector using the given patch statistics engine.
func NewDetector(ops PatchOps, params DetectorParams) *Detector {
	return &Detector{ops: ops, params: params}
}

// Params returns the detector's configuration.
func (d *Detector) Params() DetectorParams { return d.params }

// CheckSequence runs the full validation decision on a sequence of
// normalized frames. Sequences with fewer than two frames, or frames too
// small to tile a single patch, yield an empty zero-flag detection rather
// than an error. Split-window validation always runs once the motion
// gate passes; log verbosity affects logging only, never the decision.
func (d *Detector) CheckSequence(cameraID string, seq Stack) (Detection, error) {
	if err := seq.Validate(); err != nil {
		return Detection{}, fmt.Errorf("invalid sequence for camera %s: %w", cameraID, err)
	}
	t, rows, cols := seq.Shape()
	py, px := PatchGridSize(rows, cols, d.params.SlidingWindow)
	if t < 2 || py == 0 || px == 0 {
		return Detection{}, nil
	}
	sw := d.params.SlidingWindow

	meanArr := d.ops.PatchMean(seq, sw)
	wass := d.ops.PatchDistributionDistance(seq, sw)

	// Diagnostic statistics, mirrored on the dashboard and the debug log;
	// they do not participate in the decision.
	mt := d.ops.TimeDerivative(meanArr)
	st := d.ops.TimeDifference(seq)
	sxy := d.ops.SpatialGradientMagnitude(seq)
	mst := d.ops.PatchMean(st, sw)
	msxy := d.ops.PatchMean(sxy, sw)
	reportStackStats(mt, cameraID, "mean drift")
	reportStackStats(mst, cameraID, "time difference")
	reportStackStats(msxy, cameraID, "spatial gradient")

	motionCount := d.ops.CountAboveThreshold(st, d.params.MotionThreshold)
	monitoring.Debugf(2, "[CAM:%s] motion count (pixels > %.1f): %d", cameraID, d.params.MotionThreshold, motionCount)

	wsMin := d.ops.MinOverTime(wass)
	result := Detection{MinDistance: wsMin, MotionCount: motionCount}

	if d.params.MotionGate && motionCount >= d.params.MotionCountThreshold {
		monitoring.Debugf(1, "[CAM:%s] high motion (%d >= %d), skipping validation", cameraID, motionCount, d.params.MotionCountThreshold)
		result.Gated = true
		return result, nil
	}

	half := len(wass) / 2
	wsMinA := d.ops.MinOverTime(wass[:half])
	wsMinB := d.ops.MinOverTime(wass[half:])
	result.CountA = countAtLeast(wsMinA, d.params.SensitivityVal)
	result.CountB = countAtLeast(wsMinB, d.params.SensitivityVal)

	if result.CountA > d.params.PatchesToValidate && result.CountB > d.params.PatchesToValidate {
		monitoring.Logf("[CAM:%s] smoke detected (patches: %d/%d, threshold %d)",
			cameraID, result.CountA, result.CountB, d.params.PatchesToValidate)
		result.Flag = 1
	} else {
		monitoring.Debugf(1, "[CAM:%s] activation not met (patches: %d/%d, threshold %d)",
			cameraID, result.CountA, result.CountB, d.params.PatchesToValidate)
	}
	return result, nil
}

// countAtLeast counts pixels with value >= threshold. Unlike
// CountAboveThreshold this comparison is inclusive and unsigned: it counts
// validated patches, not moving pixels.
func countAtLeast(f Frame, threshold float32) int {
	count := 0
	for _, v := range f.Pix {
		if v >= threshold {
			count++
		}
	}
	return count
}

// reportStackStats logs mean/min/max of a stack's interior (one leading
// and two trailing rows/columns excluded, matching the border the spatial
// gradient leaves at zero).
func reportStackStats(s Stack, cameraID, label string) {
	if monitoring.Verbosity() < 2 {
		return
	}
	t, rows, cols := s.Shape()
	if t == 0 || rows < 4 || cols < 4 {
		return
	}
	var sum float64
	var n int
	minV := float32(0)
	maxV := float32(0)
	first := true
	for k := 0; k < t; k++ {
		for y := 1; y < rows-2; y++ {
			for x := 1; x < cols-2; x++ {
				v := s[k].At(y, x)
				if first {
					minV, maxV = v, v
					first = false
				}
				if v < minV {
					minV = v
				}
				if v > maxV {
					maxV = v
				}
				sum += float64(v)
				n++
			}
		}
	}
	if n == 0 {
		return
	}
	monitoring.Debugf(2, "[CAM:%s] %s stats: mean=%.4f min=%.4f max=%.4f shape=(%d,%d,%d)",
		cameraID, label, sum/float64(n), minV, maxV, t, rows, cols)
}
