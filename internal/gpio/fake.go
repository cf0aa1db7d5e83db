package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted line levels.
type FakeReader struct {
	// Samples contains scripted raw levels to return.
	// Each call to Read() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// Reads counts calls to Read.
	Reads int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeWriter is a test double that records every level it was driven to.
// Safe for concurrent use; pulses drive it from their own goroutine.
type FakeWriter struct {
	mu      sync.Mutex
	history []bool
	level   bool
	closed  bool

	// SetError, if set, is returned by Set after the level is recorded.
	SetError error
}

// NewFakeWriter creates a FakeWriter that starts low.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Set records the level.
func (f *FakeWriter) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, on)
	f.level = on
	return f.SetError
}

// Close drives the line low and marks the writer closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = false
	f.closed = true
	return nil
}

// Level returns the current level.
func (f *FakeWriter) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// History returns a copy of every level passed to Set.
func (f *FakeWriter) History() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.history))
	copy(out, f.history)
	return out
}

// Closed reports whether Close was called.
func (f *FakeWriter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
