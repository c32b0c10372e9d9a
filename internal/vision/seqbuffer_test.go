package vision

import "testing"

func TestSequenceBufferFillsBeforeProducing(t *testing.T) {
	b := NewSequenceBuffer(3, 8, 8)
	if _, ok := b.Sequence("cam-1"); ok {
		t.Fatal("unknown camera must not produce a sequence")
	}
	for k := 0; k < 2; k++ {
		b.Push("cam-1", ConstantSequence(1, 8, 8, float32(k))[0])
		if _, ok := b.Sequence("cam-1"); ok {
			t.Fatalf("partial buffer (%d/3) must not produce a sequence", k+1)
		}
	}
	b.Push("cam-1", ConstantSequence(1, 8, 8, 2)[0])
	seq, ok := b.Sequence("cam-1")
	if !ok {
		t.Fatal("full buffer must produce a sequence")
	}
	if len(seq) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(seq))
	}
	for k, f := range seq {
		if got := f.At(0, 0); got != float32(k) {
			t.Fatalf("frame %d value = %v, want %v (oldest first)", k, got, float32(k))
		}
	}
}

func TestSequenceBufferEvictsOldest(t *testing.T) {
	b := NewSequenceBuffer(3, 8, 8)
	for k := 0; k < 5; k++ {
		b.Push("cam-1", ConstantSequence(1, 8, 8, float32(k))[0])
	}
	if got := b.Len("cam-1"); got != 3 {
		t.Fatalf("expected length capped at 3, got %d", got)
	}
	seq, ok := b.Sequence("cam-1")
	if !ok {
		t.Fatal("expected full sequence")
	}
	for k, want := range []float32{2, 3, 4} {
		if got := seq[k].At(0, 0); got != want {
			t.Fatalf("frame %d value = %v, want %v", k, got, want)
		}
	}
}

func TestSequenceBufferCopiesBothWays(t *testing.T) {
	b := NewSequenceBuffer(1, 8, 8)
	src := ConstantSequence(1, 8, 8, 50)[0]
	b.Push("cam-1", src)
	src.Set(0, 0, 99) // caller mutation after push must not leak in

	seq, ok := b.Sequence("cam-1")
	if !ok {
		t.Fatal("expected sequence")
	}
	if got := seq[0].At(0, 0); got != 50 {
		t.Fatalf("push must copy: got %v, want 50", got)
	}

	seq[0].Set(0, 0, 77) // returned frames are the caller's to mutate
	again, _ := b.Sequence("cam-1")
	if got := again[0].At(0, 0); got != 50 {
		t.Fatalf("Sequence must return copies: got %v, want 50", got)
	}
}

func TestSequenceBufferResizesMismatchedFrames(t *testing.T) {
	b := NewSequenceBuffer(1, 4, 4)
	b.Push("cam-1", ConstantSequence(1, 8, 8, 60)[0])
	seq, ok := b.Sequence("cam-1")
	if !ok {
		t.Fatal("expected sequence after resized push")
	}
	if seq[0].Rows != 4 || seq[0].Cols != 4 {
		t.Fatalf("expected 4x4 frame, got %dx%d", seq[0].Rows, seq[0].Cols)
	}
	if got := seq[0].At(2, 2); got != 60 {
		t.Fatalf("area resize of a constant frame must stay constant, got %v", got)
	}
}

func TestSequenceBufferDropsEmptyFrames(t *testing.T) {
	b := NewSequenceBuffer(1, 4, 4)
	b.Push("cam-1", Frame{})
	if got := b.Len("cam-1"); got != 0 {
		t.Fatalf("empty frame must be dropped, got length %d", got)
	}
}

func TestSequenceBufferCamerasAreIndependent(t *testing.T) {
	b := NewSequenceBuffer(2, 4, 4)
	b.Push("cam-1", ConstantSequence(1, 4, 4, 1)[0])
	b.Push("cam-1", ConstantSequence(1, 4, 4, 2)[0])
	b.Push("cam-2", ConstantSequence(1, 4, 4, 3)[0])

	if _, ok := b.Sequence("cam-1"); !ok {
		t.Fatal("cam-1 should be full")
	}
	if _, ok := b.Sequence("cam-2"); ok {
		t.Fatal("cam-2 should not be full")
	}

	b.Reset("cam-1")
	if got := b.Len("cam-1"); got != 0 {
		t.Fatalf("reset camera must be empty, got %d", got)
	}
	if got := b.Len("cam-2"); got != 1 {
		t.Fatalf("reset must not touch other cameras, got %d", got)
	}
}
