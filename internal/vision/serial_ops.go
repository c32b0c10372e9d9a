package vision

// SerialOps is the reference patch statistics implementation: plain nested
// loops, no concurrency. It is the ground truth the parallel engine is
// validated against.
type SerialOps struct{}

var _ PatchOps = (*SerialOps)(nil)

// Name implements PatchOps.
func (*SerialOps) Name() string { return OpsSerial }

// PatchMean implements PatchOps.
func (*SerialOps) PatchMean(seq Stack, sw int) Stack {
	t, rows, cols := seq.Shape()
	py, px := PatchGridSize(rows, cols, sw)
	out := make(Stack, 0, t)
	for k := 0; k < t; k++ {
		grid := NewFrame(py, px)
		for i := 0; i < py; i++ {
			for j := 0; j < px; j++ {
				grid.Set(i, j, patchMeanCell(seq[k], i*sw, j*sw, sw))
			}
		}
		out = append(out, grid)
	}
	return out
}

// PatchDistributionDistance implements PatchOps.
func (*SerialOps) PatchDistributionDistance(seq Stack, sw int) Stack {
	t, rows, cols := seq.Shape()
	py, px := PatchGridSize(rows, cols, sw)
	if t < 2 || py == 0 || px == 0 {
		return Stack{}
	}
	scratch := newPatchScratch(sw)
	out := make(Stack, 0, t-1)
	for k := 0; k < t-1; k++ {
		grid := NewFrame(py, px)
		for i := 0; i < py; i++ {
			for j := 0; j < px; j++ {
				grid.Set(i, j, distanceCellMin(seq, k, i*sw, j*sw, sw, scratch))
			}
		}
		out = append(out, grid)
	}
	return out
}

// TimeDerivative implements PatchOps.
func (*SerialOps) TimeDerivative(s Stack) Stack {
	return consecutiveAbsDiff(s)
}

// TimeDifference implements PatchOps.
func (*SerialOps) TimeDifference(s Stack) Stack {
	return consecutiveAbsDiff(s)
}

// SpatialGradientMagnitude implements PatchOps.
func (*SerialOps) SpatialGradientMagnitude(s Stack) Stack {
	_, rows, cols := s.Shape()
	out := make(Stack, len(s))
	for k, f := range s {
		out[k] = NewFrame(rows, cols)
		spatialGradientInto(f, out[k])
	}
	return out
}

// MinOverTime implements PatchOps.
func (*SerialOps) MinOverTime(s Stack) Frame {
	return minOverTime(s)
}

// CountAboveThreshold implements PatchOps.
func (*SerialOps) CountAboveThreshold(s Stack, threshold float32) int {
	return countAboveThreshold(s, threshold)
}

// CompareDistributionDistance implements PatchOps.
func (*SerialOps) CompareDistributionDistance(ref, curr Frame, sensitivity float32, sw int) (int, Frame) {
	py, px := PatchGridSize(ref.Rows, ref.Cols, sw)
	panel := NewFrame(ref.Rows, ref.Cols)
	flag := 0
	ntot := float64(sw) * float64(sw)
	scratch := newPatchScratch(sw)
	for i := 0; i < py; i++ {
		for j := 0; j < px; j++ {
			gatherPatch(curr, i*sw, j*sw, sw, scratch.a)
			gatherPatch(ref, i*sw, j*sw, sw, scratch.b)
			d := sortedL1(scratch, ntot)
			fillPatch(panel, i*sw, j*sw, sw, d)
			if d > sensitivity {
				flag = 1
			}
		}
	}
	return flag, panel
}

// CompareMeanDifference implements PatchOps.
func (*SerialOps) CompareMeanDifference(ref, curr Frame, sensitivity float32, sw int) (int, Frame) {
	py, px := PatchGridSize(ref.Rows, ref.Cols, sw)
	panel := NewFrame(ref.Rows, ref.Cols)
	flag := 0
	for i := 0; i < py; i++ {
		for j := 0; j < px; j++ {
			m1 := patchMeanCell(ref, i*sw, j*sw, sw)
			m2 := patchMeanCell(curr, i*sw, j*sw, sw)
			d := m2 - m1
			if d < 0 {
				d = -d
			}
			fillPatch(panel, i*sw, j*sw, sw, d)
			if d > sensitivity {
				flag = 1
			}
		}
	}
	return flag, panel
}

// consecutiveAbsDiff is the shared body of TimeDerivative and
// TimeDifference: |s[k+1] - s[k]| for k in 0..T-2.
func consecutiveAbsDiff(s Stack) Stack {
	t, rows, cols := s.Shape()
	if t < 2 {
		return Stack{}
	}
	out := make(Stack, t-1)
	for k := 0; k < t-1; k++ {
		out[k] = NewFrame(rows, cols)
		absDiffInto(s[k+1], s[k], out[k])
	}
	return out
}

func minOverTime(s Stack) Frame {
	t, rows, cols := s.Shape()
	if t == 0 {
		return Frame{}
	}
	out := s[0].Clone()
	for k := 1; k < t; k++ {
		for i := 0; i < rows*cols; i++ {
			if v := s[k].Pix[i]; v < out.Pix[i] {
				out.Pix[i] = v
			}
		}
	}
	return out
}

func countAboveThreshold(s Stack, threshold float32) int {
	count := 0
	for _, f := range s {
		for _, v := range f.Pix {
			if v < 0 {
				v = -v
			}
			if v > threshold {
				count++
			}
		}
	}
	return count
}
