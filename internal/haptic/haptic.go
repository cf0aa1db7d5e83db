// Package haptic drives the vibration motor with bounded pulses.
package haptic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/smartcane/internal/fault"
	"github.com/sweeney/smartcane/internal/gpio"
	"github.com/sweeney/smartcane/internal/log"
)

// DefaultPulse is the hold time of one vibration pulse.
const DefaultPulse = 100 * time.Millisecond

// Motor is a vibration motor on a digital output line.
type Motor struct {
	mu sync.Mutex
	w  gpio.Writer
}

// NewMotor wraps an output line.
func NewMotor(w gpio.Writer) *Motor {
	return &Motor{w: w}
}

// Pulse drives the motor on, holds for d, and drives it off. The motor is
// driven off on every return path, including cancellation and panics.
func (m *Motor) Pulse(ctx context.Context, d time.Duration) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if offErr := m.w.Set(false); offErr != nil {
			err = errors.Join(err, fault.Hardware("vibration", "write", offErr))
		}
	}()

	if err := m.w.Set(true); err != nil {
		return fault.Hardware("vibration", "write", err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close forces the motor off and releases the line.
func (m *Motor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if err := m.w.Set(false); err != nil {
		errs = append(errs, fault.Hardware("vibration", "write", err))
	}
	if err := m.w.Close(); err != nil {
		errs = append(errs, fault.Hardware("vibration", "close", err))
	}
	return errors.Join(errs...)
}

// PulserStats counts pulse activity.
type PulserStats struct {
	Pulses   uint64 `json:"pulses"`
	Refused  uint64 `json:"refused"`
	Failures uint64 `json:"failures"`
}

// Pulser runs pulses in the background so the caller never waits for the
// hold time. At most one pulse runs at a time.
type Pulser struct {
	motor  *Motor
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	busy   atomic.Bool
	closed atomic.Bool

	pulses   atomic.Uint64
	refused  atomic.Uint64
	failures atomic.Uint64
}

// NewPulser creates a pulser for m.
func NewPulser(m *Motor) *Pulser {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pulser{motor: m, ctx: ctx, cancel: cancel}
}

// Trigger starts a pulse of duration d. It returns false without doing
// anything if a pulse is already running or the pulser is closed.
func (p *Pulser) Trigger(d time.Duration) bool {
	if p.closed.Load() || !p.busy.CompareAndSwap(false, true) {
		p.refused.Add(1)
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.busy.Store(false)
		if err := p.motor.Pulse(p.ctx, d); err != nil && !errors.Is(err, context.Canceled) {
			p.failures.Add(1)
			log.Warn("vibration pulse failed", "err", err)
			return
		}
		p.pulses.Add(1)
	}()
	return true
}

// Busy reports whether a pulse is running.
func (p *Pulser) Busy() bool {
	return p.busy.Load()
}

// Wait blocks until any running pulse has finished.
func (p *Pulser) Wait() {
	p.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (p *Pulser) Stats() PulserStats {
	return PulserStats{
		Pulses:   p.pulses.Load(),
		Refused:  p.refused.Load(),
		Failures: p.failures.Load(),
	}
}

// Close cuts any running pulse short, then forces the motor off and
// releases its line.
func (p *Pulser) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.cancel()
	p.wg.Wait()
	return p.motor.Close()
}
