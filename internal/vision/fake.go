package vision

import (
	"context"
	"sync"
)

// FakeDetector returns scripted detections.
type FakeDetector struct {
	// Frames are returned one per call; the last frame repeats.
	Frames [][]Detection

	// DetectError, if set, will be returned by Detect.
	DetectError error

	mu    sync.Mutex
	index int
	calls int
}

// NewFakeDetector creates a FakeDetector with the given frames.
func NewFakeDetector(frames ...[]Detection) *FakeDetector {
	return &FakeDetector{Frames: frames}
}

// Detect returns the next scripted frame.
func (f *FakeDetector) Detect(ctx context.Context) ([]Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.DetectError != nil {
		return nil, f.DetectError
	}
	if len(f.Frames) == 0 {
		return nil, nil
	}
	frame := f.Frames[f.index]
	if f.index < len(f.Frames)-1 {
		f.index++
	}
	return frame, nil
}

// Calls returns how many times Detect was called.
func (f *FakeDetector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
