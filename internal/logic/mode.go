package logic

import (
	"errors"
	"fmt"
)

// ModeCycle is the ordered, cyclic list of modes selected by the button.
// Transitions are strictly sequential; there is no random access.
type ModeCycle struct {
	modes []ModeKind
	index int
}

// NewModeCycle creates a cycle starting at the first mode.
func NewModeCycle(modes []ModeKind) (*ModeCycle, error) {
	if len(modes) == 0 {
		return nil, errors.New("mode cycle is empty")
	}
	seen := make(map[ModeKind]bool, len(modes))
	for _, m := range modes {
		if !m.Valid() {
			return nil, fmt.Errorf("unknown mode %q", m)
		}
		if seen[m] {
			return nil, fmt.Errorf("mode %q listed twice", m)
		}
		seen[m] = true
	}
	cp := make([]ModeKind, len(modes))
	copy(cp, modes)
	return &ModeCycle{modes: cp}, nil
}

// Current returns the active mode.
func (c *ModeCycle) Current() ModeKind {
	return c.modes[c.index]
}

// Index returns the position of the active mode in the cycle.
func (c *ModeCycle) Index() int {
	return c.index
}

// Len returns the number of modes in the cycle.
func (c *ModeCycle) Len() int {
	return len(c.modes)
}

// Advance moves to (current+1) mod N and returns the new mode.
func (c *ModeCycle) Advance() ModeKind {
	c.index = (c.index + 1) % len(c.modes)
	return c.modes[c.index]
}
