//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads an input line from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealReader requests an input line with the configured bias and optional edge events.
func NewRealReader(cfg InputConfig) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch cfg.Bias {
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if cfg.OnEdge != nil {
		switch cfg.Edge {
		case EdgeRising:
			opts = append(opts, gpiocdev.WithRisingEdge)
		case EdgeFalling:
			opts = append(opts, gpiocdev.WithFallingEdge)
		}
		if cfg.Edge == EdgeRising || cfg.Edge == EdgeFalling {
			onEdge := cfg.OnEdge
			opts = append(opts, gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
				onEdge()
			}))
		}
	}

	line, err := chip.RequestLine(cfg.Offset, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request input line %d: %w", cfg.Offset, err)
	}

	return &RealReader{chip: chip, line: line}, nil
}

// Read returns the raw level of the line.
func (r *RealReader) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// Reconfigures the line to input with pull-down (matching Pi boot defaults)
// before closing so the pin is left in a known state.
func (r *RealReader) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure input line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RealWriter drives an output line on actual hardware.
type RealWriter struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealWriter requests an output line, initially low.
func NewRealWriter(chipName string, offset int) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output line %d: %w", offset, err)
	}

	return &RealWriter{chip: chip, line: line}, nil
}

// Set drives the line.
func (w *RealWriter) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := w.line.SetValue(v); err != nil {
		return fmt.Errorf("set line: %w", err)
	}
	return nil
}

// Close drives the line low, then releases it as an input with pull-down.
// Every step runs even if an earlier one failed.
func (w *RealWriter) Close() error {
	var errs []error
	if w.line != nil {
		if err := w.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive output low: %w", err))
		}
		if err := w.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure output line: %w", err))
		}
		if err := w.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output line: %w", err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
