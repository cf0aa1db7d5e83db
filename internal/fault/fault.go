// Package fault defines the error taxonomy shared by the cane peripherals.
//
// Hardware errors wrap a failing peripheral call. Corrupt data and queue
// saturation are sentinels that package-specific errors wrap, so callers can
// classify with errors.Is without importing every driver package.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt marks data that failed validation (bad header, checksum,
	// implausible value). Corrupt data is discarded, never surfaced as a value.
	ErrCorrupt = errors.New("corrupt data")

	// ErrSaturated marks a bounded queue that refused new work.
	ErrSaturated = errors.New("queue saturated")
)

// HardwareError reports a failed peripheral init, read or write.
type HardwareError struct {
	Device string // e.g. "button", "vibration", "ultrasonic", "camera"
	Op     string // e.g. "open", "read", "write"
	Err    error
}

// Error implements the error interface.
func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Device, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *HardwareError) Unwrap() error {
	return e.Err
}

// Hardware wraps err as a HardwareError. Returns nil for a nil err.
func Hardware(device, op string, err error) error {
	if err == nil {
		return nil
	}
	return &HardwareError{Device: device, Op: op, Err: err}
}

// IsHardware reports whether err is (or wraps) a HardwareError.
func IsHardware(err error) bool {
	var hw *HardwareError
	return errors.As(err, &hw)
}
