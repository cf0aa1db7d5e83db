// Package gpio provides digital input and output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads a digital input line.
type Reader interface {
	// Read returns the raw electrical level of the line (true = high).
	// Which level means "pressed" is decided by the caller.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives a digital output line.
type Writer interface {
	// Set drives the line high (true) or low (false).
	Set(on bool) error

	// Close forces the line low and releases GPIO resources.
	Close() error
}

// Bias selects the internal resistor on an input line.
type Bias string

const (
	BiasNone     Bias = "none"
	BiasPullUp   Bias = "pull-up"
	BiasPullDown Bias = "pull-down"
)

// Edge selects which transitions of an input line raise an event.
type Edge string

const (
	EdgeNone    Edge = "none"
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
)

// InputConfig describes an input line request.
type InputConfig struct {
	Chip   string
	Offset int
	Bias   Bias
	// Edge, when not EdgeNone, calls OnEdge from the kernel event goroutine
	// for every matching transition. OnEdge must not block.
	Edge   Edge
	OnEdge func()
}

// Line offsets on gpiochip0 of a Jetson Nano (board pins 11 and 13).
const (
	DefaultChip      = "gpiochip0"
	DefaultButtonPin = 50
	DefaultMotorPin  = 14
)
