package vision

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Frame is a dense single-channel float32 image stored row-major.
// All frames belonging to one camera share identical dimensions once
// normalized; the zero value is the "empty" frame.
type Frame struct {
	Rows, Cols int
	Pix        []float32
}

// NewFrame allocates a zeroed frame of the given shape.
func NewFrame(rows, cols int) Frame {
	if rows <= 0 || cols <= 0 {
		return Frame{}
	}
	return Frame{Rows: rows, Cols: cols, Pix: make([]float32, rows*cols)}
}

// At returns the pixel value at (y, x). No bounds checking beyond the
// underlying slice; callers iterate within Rows/Cols.
func (f Frame) At(y, x int) float32 { return f.Pix[y*f.Cols+x] }

// Set writes the pixel value at (y, x).
func (f Frame) Set(y, x int, v float32) { f.Pix[y*f.Cols+x] = v }

// Empty reports whether the frame holds no pixels.
func (f Frame) Empty() bool { return f.Rows == 0 || f.Cols == 0 || len(f.Pix) == 0 }

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	if f.Empty() {
		return Frame{}
	}
	out := Frame{Rows: f.Rows, Cols: f.Cols, Pix: make([]float32, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

// Fingerprint returns a content hash of the pixel data. The orchestration
// loop compares fingerprints to skip reprocessing an unchanged frame.
func (f Frame) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, v := range f.Pix {
		bits := math.Float32bits(v)
		buf[0] = byte(bits)
		buf[1] = byte(bits >> 8)
		buf[2] = byte(bits >> 16)
		buf[3] = byte(bits >> 24)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Stack is an ordered sequence of equally shaped frames, newest last.
// It represents both raw frame sequences (T, rows, cols) and patch
// statistic arrays (T, patchRows, patchCols).
type Stack []Frame

// Shape returns (time steps, rows, cols). An empty stack is (0, 0, 0).
func (s Stack) Shape() (t, rows, cols int) {
	if len(s) == 0 {
		return 0, 0, 0
	}
	return len(s), s[0].Rows, s[0].Cols
}

// Validate checks that every frame in the stack shares the first frame's
// shape and that no frame is empty.
func (s Stack) Validate() error {
	if len(s) == 0 {
		return nil
	}
	rows, cols := s[0].Rows, s[0].Cols
	for i, f := range s {
		if f.Empty() {
			return fmt.Errorf("frame %d is empty", i)
		}
		if f.Rows != rows || f.Cols != cols {
			return fmt.Errorf("frame %d shape %dx%d differs from %dx%d", i, f.Rows, f.Cols, rows, cols)
		}
	}
	return nil
}

// Clone returns a deep copy of the stack.
func (s Stack) Clone() Stack {
	out := make(Stack, len(s))
	for i, f := range s {
		out[i] = f.Clone()
	}
	return out
}

// Image is a raw camera frame prior to normalization: interleaved bytes,
// either single-channel grayscale or 3-channel BGR.
type Image struct {
	Rows, Cols int
	Channels   int // 1 (gray) or 3 (BGR)
	Data       []byte
}

// Grayscale conversion weights for BGR input (ITU-R BT.601, matching the
// conversion the cameras' original pipeline applied).
const (
	weightBlue  = 0.114
	weightGreen = 0.587
	weightRed   = 0.299
)

// Grayscale converts the raw image to a float32 frame. BGR input is
// collapsed with BT.601 luma weights; single-channel input is widened to
// float32 directly.
func (img Image) Grayscale() (Frame, error) {
	if img.Rows <= 0 || img.Cols <= 0 {
		return Frame{}, fmt.Errorf("invalid image shape %dx%d", img.Rows, img.Cols)
	}
	n := img.Rows * img.Cols
	switch img.Channels {
	case 1:
		if len(img.Data) < n {
			return Frame{}, fmt.Errorf("gray image data too short: %d < %d", len(img.Data), n)
		}
		out := NewFrame(img.Rows, img.Cols)
		for i := 0; i < n; i++ {
			out.Pix[i] = float32(img.Data[i])
		}
		return out, nil
	case 3:
		if len(img.Data) < 3*n {
			return Frame{}, fmt.Errorf("BGR image data too short: %d < %d", len(img.Data), 3*n)
		}
		out := NewFrame(img.Rows, img.Cols)
		for i := 0; i < n; i++ {
			b := float64(img.Data[3*i])
			g := float64(img.Data[3*i+1])
			r := float64(img.Data[3*i+2])
			out.Pix[i] = float32(weightBlue*b + weightGreen*g + weightRed*r)
		}
		return out, nil
	default:
		return Frame{}, fmt.Errorf("unsupported channel count %d", img.Channels)
	}
}

// Normalize converts a raw image to the configured detection shape:
// grayscale then area-weighted resize. This is the single conversion
// point for the whole pipeline.
func Normalize(img Image, rows, cols int) (Frame, error) {
	gray, err := img.Grayscale()
	if err != nil {
		return Frame{}, err
	}
	if gray.Rows == rows && gray.Cols == cols {
		return gray, nil
	}
	resized := ResizeArea(gray, rows, cols)
	if resized.Empty() {
		return Frame{}, fmt.Errorf("resize to %dx%d failed for %dx%d input", rows, cols, gray.Rows, gray.Cols)
	}
	return resized, nil
}
