package vision

import (
	"sync"

	"github.com/emberdata/smokewatch/internal/monitoring"
)

// SequenceBuffer maintains one fixed-capacity FIFO of normalized frames
// per camera. A camera's entry and lock are created lazily on first push
// and persist for the camera's lifetime. The buffer owns its frame copies:
// pushes store a defensive copy and Sequence returns fresh copies, so
// callers can never alias buffer contents.
type SequenceBuffer struct {
	mu       sync.RWMutex
	cams     map[string]*cameraBuffer
	capacity int
	rows     int
	cols     int
}

type cameraBuffer struct {
	mu     sync.Mutex
	frames []Frame
}

// NewSequenceBuffer creates a buffer producing sequences of exactly
// capacity frames at the given shape.
func NewSequenceBuffer(capacity, rows, cols int) *SequenceBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &SequenceBuffer{
		cams:     make(map[string]*cameraBuffer),
		capacity: capacity,
		rows:     rows,
		cols:     cols,
	}
}

// Capacity returns the sequence length the buffer produces.
func (b *SequenceBuffer) Capacity() int { return b.capacity }

func (b *SequenceBuffer) camera(cameraID string) *cameraBuffer {
	b.mu.RLock()
	cb := b.cams[cameraID]
	b.mu.RUnlock()
	if cb != nil {
		return cb
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb = b.cams[cameraID]; cb == nil {
		cb = &cameraBuffer{frames: make([]Frame, 0, b.capacity)}
		b.cams[cameraID] = cb
		monitoring.Debugf(1, "[CAM:%s] sequence buffer created (capacity %d)", cameraID, b.capacity)
	}
	return cb
}

// Push appends a frame to the camera's buffer, evicting the oldest frame
// when full. A frame whose shape differs from the configured target is
// resized with area averaging first; if resizing fails the frame is
// dropped and the buffer is left unchanged.
func (b *SequenceBuffer) Push(cameraID string, f Frame) {
	if f.Empty() {
		monitoring.Debugf(1, "[CAM:%s] dropping empty frame", cameraID)
		return
	}
	if f.Rows != b.rows || f.Cols != b.cols {
		resized := ResizeArea(f, b.rows, b.cols)
		if resized.Empty() {
			monitoring.Logf("[CAM:%s] dropping frame: resize %dx%d -> %dx%d failed",
				cameraID, f.Rows, f.Cols, b.rows, b.cols)
			return
		}
		f = resized
	} else {
		f = f.Clone()
	}

	cb := b.camera(cameraID)
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if len(cb.frames) == b.capacity {
		copy(cb.frames, cb.frames[1:])
		cb.frames[len(cb.frames)-1] = f
	} else {
		cb.frames = append(cb.frames, f)
	}
}

// Sequence returns a copy of the camera's frames, newest last, but only
// when the buffer holds exactly its capacity. Partial sequences are never
// returned; detection must be skipped until the buffer fills.
func (b *SequenceBuffer) Sequence(cameraID string) (Stack, bool) {
	b.mu.RLock()
	cb := b.cams[cameraID]
	b.mu.RUnlock()
	if cb == nil {
		return nil, false
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if len(cb.frames) != b.capacity {
		return nil, false
	}
	out := make(Stack, len(cb.frames))
	for i, f := range cb.frames {
		out[i] = f.Clone()
	}
	return out, true
}

// Len returns the number of frames buffered for the camera.
func (b *SequenceBuffer) Len(cameraID string) int {
	b.mu.RLock()
	cb := b.cams[cameraID]
	b.mu.RUnlock()
	if cb == nil {
		return 0
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.frames)
}

// Reset discards a camera's buffered frames, e.g. when the camera is
// disabled or reconfigured.
func (b *SequenceBuffer) Reset(cameraID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cams, cameraID)
}
