package vision

import (
	"runtime"
	"sync"
)

// ParallelOps is the accelerated patch statistics implementation. Work is
// partitioned across goroutines by output cell (time steps for the heavy
// distribution distance, frames for the lighter ops), so every individual
// cell is computed by the same kernel code in the same order as SerialOps
// and results are bit-identical.
type ParallelOps struct {
	workers int
}

var _ PatchOps = (*ParallelOps)(nil)

// NewParallelOps creates a ParallelOps using the given worker count;
// workers <= 0 selects GOMAXPROCS.
func NewParallelOps(workers int) *ParallelOps {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ParallelOps{workers: workers}
}

// Name implements PatchOps.
func (*ParallelOps) Name() string { return OpsParallel }

// forEach runs fn(k) for k in [0, n) across the worker pool. Indices are
// handed out via a channel; outputs must be written only to index k's own
// cells so ordering of workers cannot affect results.
func (p *ParallelOps) forEach(n int, fn func(k int)) {
	if n <= 0 {
		return
	}
	workers := p.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for k := 0; k < n; k++ {
			fn(k)
		}
		return
	}
	idx := make(chan int, n)
	for k := 0; k < n; k++ {
		idx <- k
	}
	close(idx)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for k := range idx {
				fn(k)
			}
		}()
	}
	wg.Wait()
}

// PatchMean implements PatchOps.
func (p *ParallelOps) PatchMean(seq Stack, sw int) Stack {
	t, rows, cols := seq.Shape()
	py, px := PatchGridSize(rows, cols, sw)
	out := make(Stack, t)
	p.forEach(t, func(k int) {
		grid := NewFrame(py, px)
		for i := 0; i < py; i++ {
			for j := 0; j < px; j++ {
				grid.Set(i, j, patchMeanCell(seq[k], i*sw, j*sw, sw))
			}
		}
		out[k] = grid
	})
	return out
}

// PatchDistributionDistance implements PatchOps. This is the dominant cost
// of the pipeline (O(T²·patches·sw²·log sw)); parallelising across the
// T-1 output time steps gives each worker an independent slab.
func (p *ParallelOps) PatchDistributionDistance(seq Stack, sw int) Stack {
	t, rows, cols := seq.Shape()
	py, px := PatchGridSize(rows, cols, sw)
	if t < 2 || py == 0 || px == 0 {
		return Stack{}
	}
	out := make(Stack, t-1)
	var scratchPool = sync.Pool{New: func() any { return newPatchScratch(sw) }}
	p.forEach(t-1, func(k int) {
		scratch := scratchPool.Get().(*patchScratch)
		defer scratchPool.Put(scratch)
		grid := NewFrame(py, px)
		for i := 0; i < py; i++ {
			for j := 0; j < px; j++ {
				grid.Set(i, j, distanceCellMin(seq, k, i*sw, j*sw, sw, scratch))
			}
		}
		out[k] = grid
	})
	return out
}

// TimeDerivative implements PatchOps.
func (p *ParallelOps) TimeDerivative(s Stack) Stack {
	return p.consecutiveAbsDiff(s)
}

// TimeDifference implements PatchOps.
func (p *ParallelOps) TimeDifference(s Stack) Stack {
	return p.consecutiveAbsDiff(s)
}

func (p *ParallelOps) consecutiveAbsDiff(s Stack) Stack {
	t, rows, cols := s.Shape()
	if t < 2 {
		return Stack{}
	}
	out := make(Stack, t-1)
	p.forEach(t-1, func(k int) {
		out[k] = NewFrame(rows, cols)
		absDiffInto(s[k+1], s[k], out[k])
	})
	return out
}

// SpatialGradientMagnitude implements PatchOps.
func (p *ParallelOps) SpatialGradientMagnitude(s Stack) Stack {
	_, rows, cols := s.Shape()
	out := make(Stack, len(s))
	p.forEach(len(s), func(k int) {
		out[k] = NewFrame(rows, cols)
		spatialGradientInto(s[k], out[k])
	})
	return out
}

// MinOverTime implements PatchOps. The reduction runs serially: mixing a
// parallel reduction order could change floating-point rounding, and the
// op is cheap relative to the distance computation.
func (*ParallelOps) MinOverTime(s Stack) Frame {
	return minOverTime(s)
}

// CountAboveThreshold implements PatchOps.
func (*ParallelOps) CountAboveThreshold(s Stack, threshold float32) int {
	return countAboveThreshold(s, threshold)
}

// CompareDistributionDistance implements PatchOps. Patch rows are
// independent output regions, so they parallelise safely.
func (p *ParallelOps) CompareDistributionDistance(ref, curr Frame, sensitivity float32, sw int) (int, Frame) {
	py, px := PatchGridSize(ref.Rows, ref.Cols, sw)
	panel := NewFrame(ref.Rows, ref.Cols)
	ntot := float64(sw) * float64(sw)
	flags := make([]int, py)
	var scratchPool = sync.Pool{New: func() any { return newPatchScratch(sw) }}
	p.forEach(py, func(i int) {
		scratch := scratchPool.Get().(*patchScratch)
		defer scratchPool.Put(scratch)
		for j := 0; j < px; j++ {
			gatherPatch(curr, i*sw, j*sw, sw, scratch.a)
			gatherPatch(ref, i*sw, j*sw, sw, scratch.b)
			d := sortedL1(scratch, ntot)
			fillPatch(panel, i*sw, j*sw, sw, d)
			if d > sensitivity {
				flags[i] = 1
			}
		}
	})
	flag := 0
	for _, f := range flags {
		if f == 1 {
			flag = 1
			break
		}
	}
	return flag, panel
}

// CompareMeanDifference implements PatchOps.
func (p *ParallelOps) CompareMeanDifference(ref, curr Frame, sensitivity float32, sw int) (int, Frame) {
	py, px := PatchGridSize(ref.Rows, ref.Cols, sw)
	panel := NewFrame(ref.Rows, ref.Cols)
	flags := make([]int, py)
	p.forEach(py, func(i int) {
		for j := 0; j < px; j++ {
			m1 := patchMeanCell(ref, i*sw, j*sw, sw)
			m2 := patchMeanCell(curr, i*sw, j*sw, sw)
			d := m2 - m1
			if d < 0 {
				d = -d
			}
			fillPatch(panel, i*sw, j*sw, sw, d)
			if d > sensitivity {
				flags[i] = 1
			}
		}
	})
	flag := 0
	for _, f := range flags {
		if f == 1 {
			flag = 1
			break
		}
	}
	return flag, panel
}
