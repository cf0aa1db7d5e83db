package announce

import (
	"errors"
	"fmt"

	"github.com/sweeney/smartcane/internal/fault"
)

// Sentinel errors for common error conditions.
var (
	// ErrQueueFull is returned when the priority queue is at capacity.
	ErrQueueFull = fmt.Errorf("announce: priority queue full: %w", fault.ErrSaturated)

	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("announce: closed")

	// ErrWorkerHung is returned by Close when the render call ignored cancellation.
	ErrWorkerHung = errors.New("announce: worker did not stop")
)

// RenderError wraps a failed render with the text that was being spoken.
type RenderError struct {
	Text string
	Err  error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("announce: render %q: %v", e.Text, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}
