package vision

import "testing"

// Monitor-phase frame pair comparisons: patch-constant panels and a
// strictly-greater-than sensitivity flag.

func TestCompareDistributionDistanceIdenticalFrames(t *testing.T) {
	ops := &SerialOps{}
	f := PlumeSequence(1, 32, 32, 3)[0]
	flag, panel := ops.CompareDistributionDistance(f, f, 0, 16)
	if flag != 0 {
		t.Fatal("identical frames must not flag even at zero sensitivity")
	}
	for i, v := range panel.Pix {
		if v != 0 {
			t.Fatalf("expected zero panel, got %v at %d", v, i)
		}
	}
}

func TestCompareDistributionDistancePanelAndFlag(t *testing.T) {
	ops := &SerialOps{}
	ref := ConstantSequence(1, 32, 32, 100)[0]
	curr := ConstantSequence(1, 32, 32, 100)[0]
	// Shift one patch by 10: its distance is exactly 10, the rest stay 0.
	fillPatch(curr, 16, 16, 16, 110)

	flag, panel := ops.CompareDistributionDistance(ref, curr, 5, 16)
	if flag != 1 {
		t.Fatal("expected flag for patch distance 10 > sensitivity 5")
	}
	if got := panel.At(20, 20); got != 10 {
		t.Fatalf("changed patch panel value = %v, want 10", got)
	}
	if got := panel.At(0, 0); got != 0 {
		t.Fatalf("unchanged patch panel value = %v, want 0", got)
	}
	// Panel values are constant across each patch region.
	if panel.At(16, 16) != panel.At(31, 31) {
		t.Fatal("panel must be constant within a patch")
	}

	// The flag comparison is strict: a distance equal to the sensitivity
	// does not flag.
	flag, _ = ops.CompareDistributionDistance(ref, curr, 10, 16)
	if flag != 0 {
		t.Fatal("distance equal to sensitivity must not flag")
	}
}

func TestCompareDistributionDistanceIgnoresSpatialRearrangement(t *testing.T) {
	ops := &SerialOps{}
	// Two frames with the same pixel multiset per patch but rearranged:
	// the sorted comparison sees identical distributions.
	ref := NewFrame(16, 16)
	curr := NewFrame(16, 16)
	for i := range ref.Pix {
		ref.Pix[i] = float32(i % 7)
		curr.Pix[len(curr.Pix)-1-i] = float32(i % 7)
	}
	flag, panel := ops.CompareDistributionDistance(ref, curr, 0, 16)
	if flag != 0 || panel.At(0, 0) != 0 {
		t.Fatalf("rearranged pixels must compare equal, got flag=%d d=%v", flag, panel.At(0, 0))
	}
}

func TestCompareMeanDifference(t *testing.T) {
	ops := &SerialOps{}
	ref := ConstantSequence(1, 32, 32, 100)[0]
	curr := ConstantSequence(1, 32, 32, 100)[0]
	fillPatch(curr, 0, 0, 16, 92) // mean shift of -8

	flag, panel := ops.CompareMeanDifference(ref, curr, 5, 16)
	if flag != 1 {
		t.Fatal("expected flag for |mean shift| 8 > sensitivity 5")
	}
	if got := panel.At(0, 0); got != 8 {
		t.Fatalf("panel value = %v, want absolute shift 8", got)
	}
	if got := panel.At(20, 20); got != 0 {
		t.Fatalf("unchanged patch panel value = %v, want 0", got)
	}

	flag, _ = ops.CompareMeanDifference(ref, curr, 8, 16)
	if flag != 0 {
		t.Fatal("mean shift equal to sensitivity must not flag")
	}
}

func TestCompareMeanDifferenceMasksOffsettingChanges(t *testing.T) {
	ops := &SerialOps{}
	ref := ConstantSequence(1, 16, 16, 100)[0]
	curr := ref.Clone()
	// Raise half the patch and lower the other half by the same amount:
	// the mean comparison cannot see it, the distribution comparison can.
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if y < 8 {
				curr.Set(y, x, 120)
			} else {
				curr.Set(y, x, 80)
			}
		}
	}
	flag, panel := ops.CompareMeanDifference(ref, curr, 5, 16)
	if flag != 0 || panel.At(0, 0) != 0 {
		t.Fatalf("offsetting changes must cancel in the mean, got flag=%d d=%v", flag, panel.At(0, 0))
	}
	flag, panel = ops.CompareDistributionDistance(ref, curr, 5, 16)
	if flag != 1 || panel.At(0, 0) != 20 {
		t.Fatalf("distribution comparison must see the change, got flag=%d d=%v", flag, panel.At(0, 0))
	}
}
