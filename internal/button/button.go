// Package button turns a noisy push-button line into clean press events.
//
// Two paths feed one gate: polling the line every tick, and an optional
// edge interrupt that sets a single-slot pending flag. Both go through the
// same re-arm and minimum-interval checks in logic.PressGate.
package button

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/smartcane/internal/fault"
	"github.com/sweeney/smartcane/internal/gpio"
	"github.com/sweeney/smartcane/internal/logic"
)

// Default timings.
const (
	DefaultSettle      = 100 * time.Millisecond
	DefaultRearm       = 50 * time.Millisecond
	DefaultMinInterval = 300 * time.Millisecond
)

// Config holds button timings and polarity.
type Config struct {
	// PressedLevel is the raw line level that means "pressed".
	// false for an active-low button wired to ground with a pull-up.
	PressedLevel bool
	Settle       time.Duration
	Rearm        time.Duration
	MinInterval  time.Duration

	// Now and Sleep are injectable for tests. nil means the real clock.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// Button is a debounced push button. Poll is called from the control loop
// only; Notify may be called from any goroutine.
type Button struct {
	reader  gpio.Reader
	cfg     Config
	gate    *logic.PressGate
	pending atomic.Bool
}

// New creates a button on an already opened reader.
func New(reader gpio.Reader, cfg Config) *Button {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &Button{
		reader: reader,
		cfg:    cfg,
		gate:   logic.NewPressGate(cfg.Rearm, cfg.MinInterval),
	}
}

// Open creates a button whose reader is opened by open. open receives the
// button's Notify so the reader can deliver edge interrupts.
func Open(cfg Config, open func(onEdge func()) (gpio.Reader, error)) (*Button, error) {
	b := New(nil, cfg)
	r, err := open(b.Notify)
	if err != nil {
		return nil, fault.Hardware("button", "open", err)
	}
	b.reader = r
	return b, nil
}

// Notify records an edge interrupt. Repeated calls before the next Poll
// collapse into one.
func (b *Button) Notify() {
	b.pending.Store(true)
}

// Poll returns true at most once per physical press.
//
// A pressed reading on an armed gate waits the settle interval and re-reads;
// the press fires only if the line is still pressed. A pending edge seen
// while the line reads released only prompts a second look after the
// settle interval; an edge never fires without a pressed level that holds
// through the settle re-read.
func (b *Button) Poll() (bool, error) {
	edge := b.pending.Swap(false)

	pressed, err := b.pressed()
	if err != nil {
		return false, err
	}
	now := b.cfg.Now()

	if !pressed && edge && b.gate.Ready(now) {
		// The interrupt can lead the level.
		b.cfg.Sleep(b.cfg.Settle)
		if pressed, err = b.pressed(); err != nil {
			return false, err
		}
		now = b.cfg.Now()
	}

	if !pressed {
		b.gate.Released(now)
		return false, nil
	}

	if !b.gate.Ready(now) {
		b.gate.Pressed()
		return false, nil
	}

	b.cfg.Sleep(b.cfg.Settle)

	pressed, err = b.pressed()
	if err != nil {
		return false, err
	}
	now = b.cfg.Now()
	if !pressed {
		// Bounce: the contact did not hold through the settle interval.
		b.gate.Released(now)
		return false, nil
	}

	b.gate.Fire(now)
	return true, nil
}

// Pressed reads the line once without touching the gate.
func (b *Button) Pressed() (bool, error) {
	return b.pressed()
}

// Close releases the underlying line.
func (b *Button) Close() error {
	if b.reader == nil {
		return nil
	}
	return b.reader.Close()
}

func (b *Button) pressed() (bool, error) {
	level, err := b.reader.Read()
	if err != nil {
		return false, fault.Hardware("button", "read", err)
	}
	return level == b.cfg.PressedLevel, nil
}
