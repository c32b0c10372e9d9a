package vision

import "fmt"

// PatchOps is the patch statistics engine. Two implementations exist: the
// straightforward SerialOps reference and the goroutine-partitioned
// ParallelOps. Both must produce identical output for identical input;
// cmd/tools/parity-check and the parity tests enforce this. The
// implementation is selected once at startup via NewPatchOps, never by
// runtime probing.
type PatchOps interface {
	// Name identifies the implementation ("serial" or "parallel").
	Name() string

	// PatchMean reduces each frame of the sequence to a (patchRows,
	// patchCols) grid of per-patch arithmetic means. Output has the same
	// number of time steps as the input.
	PatchMean(seq Stack, sw int) Stack

	// PatchDistributionDistance computes, for every time step t except the
	// last, the minimum over all later steps tt of the per-patch sorted-L1
	// distance between the two patches' pixel values, normalized by sw².
	// Output shape is (T-1, patchRows, patchCols); empty when T < 2 or the
	// frame is smaller than one patch.
	PatchDistributionDistance(seq Stack, sw int) Stack

	// TimeDerivative is the absolute difference between consecutive time
	// steps of a patch statistic array. Output has T-1 steps.
	TimeDerivative(s Stack) Stack

	// TimeDifference is the absolute difference between consecutive raw
	// frames at pixel resolution. Same formula as TimeDerivative; kept as a
	// distinct operation because its callers gate on pixel-level motion
	// rather than patch-mean drift.
	TimeDifference(s Stack) Stack

	// SpatialGradientMagnitude computes a per-frame central-difference
	// gradient (offset 2, divided by 2) combined as 0.5*(|gx|+|gy|).
	// Border pixels that the slicing window cannot reach stay zero.
	SpatialGradientMagnitude(s Stack) Stack

	// MinOverTime reduces a stack to its elementwise minimum across the
	// time axis. An empty stack yields an empty frame.
	MinOverTime(s Stack) Frame

	// CountAboveThreshold counts elements with |value| strictly above the
	// threshold.
	CountAboveThreshold(s Stack, threshold float32) int

	// CompareDistributionDistance runs the monitor-phase sorted-L1 patch
	// comparison of a single frame pair. Each patch's distance is written
	// into every pixel of that patch's region of the returned frame-sized
	// panel; flag is 1 if any patch strictly exceeds sensitivity.
	CompareDistributionDistance(ref, curr Frame, sensitivity float32, sw int) (int, Frame)

	// CompareMeanDifference is the monitor-phase absolute mean-difference
	// patch comparison with the same panel and flag semantics.
	CompareMeanDifference(ref, curr Frame, sensitivity float32, sw int) (int, Frame)
}

// Implementation names accepted by NewPatchOps.
const (
	OpsSerial   = "serial"
	OpsParallel = "parallel"
)

// NewPatchOps returns the patch statistics implementation for the given
// name. The choice is a startup-time configuration decision.
func NewPatchOps(name string) (PatchOps, error) {
	switch name {
	case OpsSerial:
		return &SerialOps{}, nil
	case OpsParallel, "":
		return NewParallelOps(0), nil
	default:
		return nil, fmt.Errorf("unknown patch ops implementation %q", name)
	}
}

// PatchGridSize returns the dimensions of the non-overlapping sw×sw patch
// grid tiling a rows×cols frame from the top-left. Trailing strips
// narrower than sw are dropped, never padded.
func PatchGridSize(rows, cols, sw int) (patchRows, patchCols int) {
	if sw <= 0 || rows < sw || cols < sw {
		return 0, 0
	}
	return (rows-sw)/sw + 1, (cols-sw)/sw + 1
}
