package vision

import "testing"

func testParams() DetectorParams {
	return DetectorParams{
		SlidingWindow:        16,
		SensitivityVal:       2,
		MotionThreshold:      60,
		MotionCountThreshold: 850,
		PatchesToValidate:    6,
		MotionGate:           true,
	}
}

func TestCheckSequenceUniformRampDetects(t *testing.T) {
	// A slow uniform brightening across the whole 4x4 patch grid: every
	// patch's half-window minimum distance is the per-frame step (4), well
	// above the sensitivity floor, and frame-to-frame motion stays small.
	d := NewDetector(&SerialOps{}, testParams())
	seq := RampSequence(11, 64, 64, 180, 220)
	det, err := d.CheckSequence("cam-a", seq)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if det.Gated {
		t.Fatalf("slow ramp must not trip the motion gate (count %d)", det.MotionCount)
	}
	if det.CountA != 16 || det.CountB != 16 {
		t.Fatalf("expected all 16 patches validated per half, got %d/%d", det.CountA, det.CountB)
	}
	if !det.Smoke() {
		t.Fatal("expected smoke flag for uniform ramp")
	}
	if det.MinDistance.Rows != 4 || det.MinDistance.Cols != 4 {
		t.Fatalf("expected 4x4 min-distance grid, got %dx%d", det.MinDistance.Rows, det.MinDistance.Cols)
	}
}

func TestCheckSequenceConfinedRampBelowPatchCount(t *testing.T) {
	// The ramp covers only 3 of 16 patches; both halves validate exactly 3,
	// below the required strict majority of PatchesToValidate=6.
	d := NewDetector(&SerialOps{}, testParams())
	seq := PatchRampSequence(11, 64, 64, 16, 100, 180, 220,
		[][2]int{{0, 0}, {1, 1}, {2, 2}})
	det, err := d.CheckSequence("cam-b", seq)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if det.Gated {
		t.Fatal("confined ramp must not trip the motion gate")
	}
	if det.CountA != 3 || det.CountB != 3 {
		t.Fatalf("expected 3 validated patches per half, got %d/%d", det.CountA, det.CountB)
	}
	if det.Smoke() {
		t.Fatal("3 patches must not satisfy a threshold of 6")
	}
}

func TestCheckSequenceBothHalvesMustValidate(t *testing.T) {
	// Brightening stops after frame 5: the first half-window sees the ramp,
	// the second sees a static scene with zero distances. One validated
	// half is not a detection.
	seq := make(Stack, 11)
	for k := 0; k < 6; k++ {
		seq[k] = ConstantSequence(1, 64, 64, 180+float32(4*k))[0]
	}
	for k := 6; k < 11; k++ {
		seq[k] = ConstantSequence(1, 64, 64, 200)[0]
	}
	d := NewDetector(&SerialOps{}, testParams())
	det, err := d.CheckSequence("cam-c", seq)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if det.CountA != 16 {
		t.Fatalf("expected first half fully validated, got %d", det.CountA)
	}
	if det.CountB != 0 {
		t.Fatalf("expected second half unvalidated, got %d", det.CountB)
	}
	if det.Smoke() {
		t.Fatal("a single validated half must not flag smoke")
	}
}

func TestCheckSequenceMotionGate(t *testing.T) {
	// Alternating black/white frames: every pixel flips by 255 each step,
	// saturating the motion count, while each frame still has an identical
	// future partner so all distribution distances are zero.
	seq := make(Stack, 11)
	for k := range seq {
		v := float32(0)
		if k%2 == 1 {
			v = 255
		}
		seq[k] = ConstantSequence(1, 64, 64, v)[0]
	}

	params := testParams()
	d := NewDetector(&SerialOps{}, params)
	det, err := d.CheckSequence("cam-d", seq)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	wantMotion := 64 * 64 * 10
	if det.MotionCount != wantMotion {
		t.Fatalf("expected motion count %d, got %d", wantMotion, det.MotionCount)
	}
	if !det.Gated || det.Smoke() {
		t.Fatalf("expected gated no-smoke result, got %+v", det)
	}
	if det.CountA != 0 || det.CountB != 0 {
		t.Fatal("gated result must not carry validation counts")
	}
	if det.MinDistance.Empty() {
		t.Fatal("gated result must still carry the min-distance grid")
	}

	// Raising the gate threshold above the count re-enables validation.
	params.MotionCountThreshold = wantMotion + 1
	det, err = NewDetector(&SerialOps{}, params).CheckSequence("cam-d", seq)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if det.Gated {
		t.Fatal("motion count below threshold must not gate")
	}
	if det.Smoke() {
		t.Fatal("zero distances must not flag smoke")
	}

	// Disabling the gate entirely ignores the motion count.
	params = testParams()
	params.MotionGate = false
	det, err = NewDetector(&SerialOps{}, params).CheckSequence("cam-d", seq)
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if det.Gated {
		t.Fatal("disabled gate must never fire")
	}
	if det.MotionCount != wantMotion {
		t.Fatalf("motion count must still be reported, got %d", det.MotionCount)
	}
}

func TestCheckSequenceDegenerateInputs(t *testing.T) {
	d := NewDetector(&SerialOps{}, testParams())

	det, err := d.CheckSequence("cam-e", Stack{})
	if err != nil || det.Smoke() || !det.MinDistance.Empty() {
		t.Fatalf("empty sequence: expected zero detection, got %+v err=%v", det, err)
	}

	det, err = d.CheckSequence("cam-e", ConstantSequence(1, 64, 64, 100))
	if err != nil || det.Smoke() {
		t.Fatalf("single frame: expected zero detection, got %+v err=%v", det, err)
	}

	// Frames too small for even one patch.
	det, err = d.CheckSequence("cam-e", ConstantSequence(5, 8, 8, 100))
	if err != nil || det.Smoke() {
		t.Fatalf("sub-patch frames: expected zero detection, got %+v err=%v", det, err)
	}

	// Mismatched shapes are a caller bug and must error.
	bad := Stack{NewFrame(64, 64), NewFrame(32, 32)}
	if _, err := d.CheckSequence("cam-e", bad); err == nil {
		t.Fatal("expected error for mismatched frame shapes")
	}
}
