package vision

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Synthetic sequence generators used by the parity tool, the dev-mode
// frame source and the tests. Intensities follow the 0..255 grayscale
// range the normalizer produces.

// ConstantSequence returns t identical frames of the given value.
func ConstantSequence(t, rows, cols int, value float32) Stack {
	out := make(Stack, t)
	for k := range out {
		f := NewFrame(rows, cols)
		for i := range f.Pix {
			f.Pix[i] = value
		}
		out[k] = f
	}
	return out
}

// RampSequence returns t frames whose uniform intensity ramps linearly
// from start (first frame) to end (last frame). A slow uniform ramp
// mimics smoke spreading across the whole field of view.
func RampSequence(t, rows, cols int, start, end float32) Stack {
	out := make(Stack, t)
	for k := range out {
		v := start
		if t > 1 {
			v = start + (end-start)*float32(k)/float32(t-1)
		}
		f := NewFrame(rows, cols)
		for i := range f.Pix {
			f.Pix[i] = v
		}
		out[k] = f
	}
	return out
}

// PatchRampSequence returns a sequence at the base intensity with the ramp
// confined to the given patch coordinates of the sw-tiled grid. Used to
// exercise the per-half validated patch counting.
func PatchRampSequence(t, rows, cols, sw int, base, start, end float32, patches [][2]int) Stack {
	out := ConstantSequence(t, rows, cols, base)
	for k := range out {
		v := start
		if t > 1 {
			v = start + (end-start)*float32(k)/float32(t-1)
		}
		for _, p := range patches {
			fillPatch(out[k], p[0]*sw, p[1]*sw, sw, v)
		}
	}
	return out
}

// PlumeSequence generates a noisy scene with a drifting gaussian-ish
// plume brightening over time: gaussian pixel noise over a mid-gray
// background plus a disc of increasing intensity moving diagonally.
// Deterministic for a fixed seed.
func PlumeSequence(t, rows, cols int, seed uint64) Stack {
	out := make(Stack, t)
	for k := range out {
		out[k] = PlumeFrame(k, rows, cols, seed)
	}
	return out
}

// PlumeFrame returns frame k of the plume scene. Frames are generated
// independently (each with its own noise stream), so a live source can
// produce frame k without materializing frames 0..k-1.
func PlumeFrame(k, rows, cols int, seed uint64) Frame {
	noise := distuv.Normal{Mu: 0, Sigma: 2, Src: rand.NewPCG(seed, seed+uint64(k)+1)}
	radius := float64(minIntVal(rows, cols)) / 6
	// The plume drifts one diagonal step per frame and crosses the field
	// of view in about 20 frames, then holds at the far corner.
	progress := float64(k) / 20
	if progress > 1 {
		progress = 1
	}
	f := NewFrame(rows, cols)
	cy := float64(rows)/4 + progress*float64(rows)/2
	cx := float64(cols)/4 + progress*float64(cols)/2
	lift := float32(20 + 4*minIntVal(k, 30))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := float32(120) + float32(noise.Rand())
			dy := float64(y) - cy
			dx := float64(x) - cx
			if dy*dy+dx*dx < radius*radius {
				v += lift
			}
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			f.Set(y, x, v)
		}
	}
	return f
}

func minIntVal(a, b int) int {
	if a < b {
		return a
	}
	return b
}
