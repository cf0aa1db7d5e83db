package announce

import (
	"context"
	"sync"
)

// FakeRenderer records rendered messages for tests.
type FakeRenderer struct {
	// RenderFunc, if set, runs inside Render. Its error is returned.
	RenderFunc func(ctx context.Context, text string) error

	mu        sync.Mutex
	calls     []string
	rendered  []string
	active    int
	maxActive int
}

// NewFakeRenderer creates a renderer that succeeds instantly.
func NewFakeRenderer() *FakeRenderer {
	return &FakeRenderer{}
}

// Render records the call and runs RenderFunc.
func (f *FakeRenderer) Render(ctx context.Context, text string) error {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	fn := f.RenderFunc
	f.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx, text)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	if err == nil {
		f.rendered = append(f.rendered, text)
	}
	return err
}

// Calls returns every text Render was called with.
func (f *FakeRenderer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Rendered returns the texts whose render succeeded.
func (f *FakeRenderer) Rendered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.rendered...)
}

// MaxActive returns the highest number of overlapping Render calls seen.
func (f *FakeRenderer) MaxActive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}
