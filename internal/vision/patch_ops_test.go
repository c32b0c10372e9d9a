package vision

import (
	"math"
	"os"
	"testing"

	"github.com/emberdata/smokewatch/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// frameFromValues builds a frame from row-major values.
func frameFromValues(rows, cols int, values ...float32) Frame {
	f := NewFrame(rows, cols)
	copy(f.Pix, values)
	return f
}

func TestPatchGridSize(t *testing.T) {
	// Production frame shape: 504x896 at sw=16 tiles into 31x56 patches.
	py, px := PatchGridSize(504, 896, 16)
	if py != 31 || px != 56 {
		t.Fatalf("expected grid (31,56), got (%d,%d)", py, px)
	}

	// Frames smaller than one patch tile nothing.
	if py, px := PatchGridSize(10, 10, 16); py != 0 || px != 0 {
		t.Fatalf("expected empty grid, got (%d,%d)", py, px)
	}

	// A frame exactly one patch wide tiles a single patch.
	if py, px := PatchGridSize(16, 16, 16); py != 1 || px != 1 {
		t.Fatalf("expected grid (1,1), got (%d,%d)", py, px)
	}

	// Trailing strips narrower than sw are dropped, not padded.
	if py, px := PatchGridSize(33, 47, 16); py != 2 || px != 2 {
		t.Fatalf("expected grid (2,2), got (%d,%d)", py, px)
	}
}

func TestPatchMean(t *testing.T) {
	ops := &SerialOps{}
	seq := Stack{
		frameFromValues(2, 4,
			0, 1, 2, 3,
			4, 5, 6, 7),
	}
	out := ops.PatchMean(seq, 2)
	if len(out) != 1 {
		t.Fatalf("expected 1 time step, got %d", len(out))
	}
	if out[0].Rows != 1 || out[0].Cols != 2 {
		t.Fatalf("expected grid (1,2), got (%d,%d)", out[0].Rows, out[0].Cols)
	}
	if got := out[0].At(0, 0); got != 2.5 {
		t.Fatalf("expected patch mean 2.5, got %v", got)
	}
	if got := out[0].At(0, 1); got != 4.5 {
		t.Fatalf("expected patch mean 4.5, got %v", got)
	}
}

func TestPatchDistributionDistanceConstantSequenceIsZero(t *testing.T) {
	ops := &SerialOps{}
	seq := ConstantSequence(5, 32, 32, 128)
	out := ops.PatchDistributionDistance(seq, 16)
	if len(out) != 4 {
		t.Fatalf("expected T-1=4 time steps, got %d", len(out))
	}
	for k, f := range out {
		for i, v := range f.Pix {
			if v != 0 {
				t.Fatalf("expected zero distance at t=%d idx=%d, got %v", k, i, v)
			}
		}
	}
}

func TestPatchDistributionDistanceKnownValue(t *testing.T) {
	ops := &SerialOps{}
	seq := Stack{
		frameFromValues(2, 2, 0, 1, 2, 3),
		frameFromValues(2, 2, 4, 1, 0, 5),
	}
	out := ops.PatchDistributionDistance(seq, 2)
	if len(out) != 1 {
		t.Fatalf("expected 1 time step, got %d", len(out))
	}
	// sorted [0 1 2 3] vs [0 1 4 5]: |diff| sums to 4, normalized by sw²=4.
	if got := out[0].At(0, 0); got != 1.0 {
		t.Fatalf("expected distance 1.0, got %v", got)
	}
}

func TestPatchDistributionDistanceMinOverFuturePartners(t *testing.T) {
	ops := &SerialOps{}
	// Uniform frames at 10, 30, 12: t=0 is closest to t=2 (|12-10|=2),
	// not its immediate successor (|30-10|=20).
	seq := Stack{
		ConstantSequence(1, 4, 4, 10)[0],
		ConstantSequence(1, 4, 4, 30)[0],
		ConstantSequence(1, 4, 4, 12)[0],
	}
	out := ops.PatchDistributionDistance(seq, 4)
	if len(out) != 2 {
		t.Fatalf("expected 2 time steps, got %d", len(out))
	}
	if got := out[0].At(0, 0); got != 2 {
		t.Fatalf("expected min distance 2 at t=0, got %v", got)
	}
	if got := out[1].At(0, 0); got != 18 {
		t.Fatalf("expected distance 18 at t=1, got %v", got)
	}
}

func TestPatchDistributionDistanceShortSequence(t *testing.T) {
	ops := &SerialOps{}
	if out := ops.PatchDistributionDistance(Stack{NewFrame(8, 8)}, 4); len(out) != 0 {
		t.Fatalf("expected empty output for T=1, got %d steps", len(out))
	}
	if out := ops.PatchDistributionDistance(Stack{}, 4); len(out) != 0 {
		t.Fatalf("expected empty output for empty stack, got %d steps", len(out))
	}
}

func TestTimeDifferenceAndDerivativeStripSign(t *testing.T) {
	ops := &SerialOps{}
	seq := Stack{
		ConstantSequence(1, 2, 2, 10)[0],
		ConstantSequence(1, 2, 2, 4)[0],
	}
	st := ops.TimeDifference(seq)
	if len(st) != 1 {
		t.Fatalf("expected 1 time step, got %d", len(st))
	}
	if got := st[0].At(0, 0); got != 6 {
		t.Fatalf("expected |4-10|=6, got %v", got)
	}
	mt := ops.TimeDerivative(seq)
	if got := mt[0].At(1, 1); got != 6 {
		t.Fatalf("expected derivative 6, got %v", got)
	}
}

func TestSpatialGradientMagnitude(t *testing.T) {
	ops := &SerialOps{}
	// Vertical ramp f(y,x) = 10y: gy = 10 at interior rows, gx = 0.
	f := NewFrame(5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			f.Set(y, x, float32(10*y))
		}
	}
	out := ops.SpatialGradientMagnitude(Stack{f})
	if len(out) != 1 {
		t.Fatalf("expected 1 time step, got %d", len(out))
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			want := float32(0)
			if y == 1 || y == 2 {
				want = 5 // 0.5 * |gy| with gy = (f[y+1]-f[y-1])/2 = 10
			}
			if got := out[0].At(y, x); got != want {
				t.Fatalf("gradient at (%d,%d) = %v, want %v", y, x, got, want)
			}
		}
	}
}

func TestSpatialGradientTinyFrameStaysZero(t *testing.T) {
	ops := &SerialOps{}
	out := ops.SpatialGradientMagnitude(Stack{frameFromValues(2, 2, 1, 2, 3, 4)})
	for _, v := range out[0].Pix {
		if v != 0 {
			t.Fatalf("expected zero gradient for 2x2 frame, got %v", v)
		}
	}
}

func TestMinOverTime(t *testing.T) {
	ops := &SerialOps{}
	s := Stack{
		frameFromValues(1, 2, 5, 1),
		frameFromValues(1, 2, 3, 9),
	}
	out := ops.MinOverTime(s)
	if out.At(0, 0) != 3 || out.At(0, 1) != 1 {
		t.Fatalf("expected [3 1], got [%v %v]", out.At(0, 0), out.At(0, 1))
	}

	if got := ops.MinOverTime(Stack{}); !got.Empty() {
		t.Fatalf("expected empty frame for empty stack")
	}
}

func TestCountAboveThresholdIsStrictAndAbsolute(t *testing.T) {
	ops := &SerialOps{}
	s := Stack{frameFromValues(1, 4, 5, -6, 5.0001, -5)}
	// threshold 5: only |−6| and |5.0001| strictly exceed it.
	if got := ops.CountAboveThreshold(s, 5); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
}

func TestResizeAreaBoxAverage(t *testing.T) {
	src := frameFromValues(4, 4,
		0, 0, 8, 8,
		0, 0, 8, 8,
		4, 4, 12, 12,
		4, 4, 12, 12)
	out := ResizeArea(src, 2, 2)
	want := [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	expect := []float32{0, 8, 4, 12}
	for i, p := range want {
		if got := out.At(p[0], p[1]); got != expect[i] {
			t.Fatalf("resize at %v = %v, want %v", p, got, expect[i])
		}
	}
}

func TestResizeAreaFractionalOverlap(t *testing.T) {
	src := frameFromValues(3, 3,
		0, 1, 2,
		3, 4, 5,
		6, 7, 8)
	out := ResizeArea(src, 2, 2)
	// dest(0,0) covers a 1.5x1.5 region: (0*1 + 1*0.5 + 3*0.5 + 4*0.25)/2.25.
	if got, want := out.At(0, 0), float32(4.0/3.0); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("fractional resize = %v, want %v", got, want)
	}
}

func TestGrayscaleBGRWeights(t *testing.T) {
	img := Image{Rows: 1, Cols: 1, Channels: 3, Data: []byte{100, 150, 200}}
	f, err := img.Grayscale()
	if err != nil {
		t.Fatalf("grayscale failed: %v", err)
	}
	if got, want := f.At(0, 0), float32(159.25); math.Abs(float64(got-want)) > 1e-3 {
		t.Fatalf("gray value = %v, want %v", got, want)
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	a := ConstantSequence(1, 8, 8, 42)[0]
	b := a.Clone()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical frames must share a fingerprint")
	}
	b.Set(3, 3, 43)
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("changed frame must change its fingerprint")
	}
}
