// Package cleanup releases resources in reverse order of acquisition.
package cleanup

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/smartcane/internal/log"
)

// Step is one named release action.
type Step struct {
	Name string
	Fn   func() error
}

// Stack runs release steps last-in first-out. A failing or panicking step
// does not stop the ones after it.
type Stack struct {
	mu    sync.Mutex
	steps []Step
	done  bool
}

// Push adds a step. Steps pushed after Run are ignored.
func (s *Stack) Push(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.steps = append(s.steps, Step{Name: name, Fn: fn})
}

// Len returns the number of pending steps.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Run executes every step once, newest first, and returns the joined errors.
// Later calls return nil.
func (s *Stack) Run() error {
	s.mu.Lock()
	steps := s.steps
	s.steps = nil
	s.done = true
	s.mu.Unlock()

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := runStep(steps[i]); err != nil {
			log.Warn("cleanup step failed", "step", steps[i].Name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", steps[i].Name, err))
			continue
		}
		log.Debug("released", "step", steps[i].Name)
	}
	return errors.Join(errs...)
}

func runStep(st Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.Fn()
}
