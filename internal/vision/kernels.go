package vision

import "slices"

// Cell-level kernels shared by SerialOps and ParallelOps. Keeping the
// arithmetic for a single output cell in one place guarantees the two
// implementations differ only in scheduling, never in rounding: the
// parallel engine partitions work across independent output cells, so
// every cell's value is produced by exactly this code in both.

// patchScratch holds reusable sort buffers for one worker.
type patchScratch struct {
	a, b []float32
}

func newPatchScratch(sw int) *patchScratch {
	n := sw * sw
	return &patchScratch{a: make([]float32, n), b: make([]float32, n)}
}

// gatherPatch copies the sw×sw patch anchored at (y0, x0) into dst.
func gatherPatch(f Frame, y0, x0, sw int, dst []float32) {
	k := 0
	for y := y0; y < y0+sw; y++ {
		base := y * f.Cols
		for x := x0; x < x0+sw; x++ {
			dst[k] = f.Pix[base+x]
			k++
		}
	}
}

// patchMeanCell returns the arithmetic mean of the patch anchored at
// (y0, x0).
func patchMeanCell(f Frame, y0, x0, sw int) float32 {
	var sum float64
	for y := y0; y < y0+sw; y++ {
		base := y * f.Cols
		for x := x0; x < x0+sw; x++ {
			sum += float64(f.Pix[base+x])
		}
	}
	return float32(sum / float64(sw*sw))
}

// sortedL1 sorts both scratch buffers in place and returns the L1 distance
// of the sorted vectors normalized by the patch area. This is the
// order-statistics approximation of the 1-D Wasserstein distance between
// the two patches' intensity distributions.
func sortedL1(s *patchScratch, ntot float64) float32 {
	slices.Sort(s.a)
	slices.Sort(s.b)
	var sum float64
	for i := range s.a {
		d := float64(s.a[i] - s.b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float32(sum / ntot)
}

// distanceCellMin computes min over all tt > t of the sorted-L1 patch
// distance between frames t and tt for the patch anchored at (y0, x0).
func distanceCellMin(seq Stack, t, y0, x0, sw int, s *patchScratch) float32 {
	ntot := float64(sw) * float64(sw)
	wMin := float32(1e8)
	for tt := t + 1; tt < len(seq); tt++ {
		gatherPatch(seq[t], y0, x0, sw, s.b)
		gatherPatch(seq[tt], y0, x0, sw, s.a)
		if d := sortedL1(s, ntot); d < wMin {
			wMin = d
		}
	}
	return wMin
}

// absDiffInto writes |a - b| elementwise into dst. All frames share shape.
func absDiffInto(a, b, dst Frame) {
	for i := range dst.Pix {
		d := a.Pix[i] - b.Pix[i]
		if d < 0 {
			d = -d
		}
		dst.Pix[i] = d
	}
}

// spatialGradientInto writes the combined gradient magnitude of src into
// dst: central differences over a 2-pixel slicing offset divided by 2,
// combined as 0.5*(|gx|+|gy|). Rows/columns the window cannot reach stay
// zero (the first and the last two along each axis).
func spatialGradientInto(src, dst Frame) {
	rows, cols := src.Rows, src.Cols
	for i := range dst.Pix {
		dst.Pix[i] = 0
	}
	if rows < 4 || cols < 4 {
		return
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var gx, gy float32
			if y >= 1 && y <= rows-3 {
				gy = (src.At(y+1, x) - src.At(y-1, x)) / 2
			}
			if x >= 1 && x <= cols-3 {
				gx = (src.At(y, x+1) - src.At(y, x-1)) / 2
			}
			if gy < 0 {
				gy = -gy
			}
			if gx < 0 {
				gx = -gx
			}
			dst.Set(y, x, 0.5*(gx+gy))
		}
	}
}

// fillPatch writes v into every pixel of the sw×sw patch anchored at
// (y0, x0). Used by the monitor-phase panels, which are frame-sized with
// patch-constant values for direct dashboard rendering.
func fillPatch(f Frame, y0, x0, sw int, v float32) {
	for y := y0; y < y0+sw; y++ {
		base := y * f.Cols
		for x := x0; x < x0+sw; x++ {
			f.Pix[base+x] = v
		}
	}
}
