package logic

import (
	"fmt"
	"time"
)

// VibrationMode selects how pulse spacing responds to distance.
type VibrationMode string

const (
	// VibrationFixed pulses at a constant interval whenever an obstacle is near.
	VibrationFixed VibrationMode = "fixed"
	// VibrationProportional shortens the interval as the obstacle gets closer.
	VibrationProportional VibrationMode = "proportional"
)

// VibrationPolicy maps an obstacle distance to the minimum spacing between pulses.
type VibrationPolicy struct {
	Mode     VibrationMode
	Interval time.Duration // spacing at (or beyond) NearCM
	Floor    time.Duration // spacing at or under DangerCM (proportional only)
	NearCM   float64
	DangerCM float64
}

// Validate checks the policy for impossible values.
func (p VibrationPolicy) Validate() error {
	switch p.Mode {
	case VibrationFixed, VibrationProportional:
	default:
		return fmt.Errorf("unknown vibration mode %q", p.Mode)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("vibration interval must be positive, got %v", p.Interval)
	}
	if p.Mode == VibrationProportional {
		if p.Floor <= 0 || p.Floor > p.Interval {
			return fmt.Errorf("vibration floor must be in (0, %v], got %v", p.Interval, p.Floor)
		}
		if p.DangerCM < 0 || p.DangerCM >= p.NearCM {
			return fmt.Errorf("danger distance must be in [0, %v), got %v", p.NearCM, p.DangerCM)
		}
	}
	return nil
}

// IntervalFor returns the pulse spacing for an obstacle at distanceCM.
func (p VibrationPolicy) IntervalFor(distanceCM float64) time.Duration {
	if p.Mode != VibrationProportional {
		return p.Interval
	}
	if distanceCM <= p.DangerCM {
		return p.Floor
	}
	if distanceCM >= p.NearCM {
		return p.Interval
	}
	frac := (distanceCM - p.DangerCM) / (p.NearCM - p.DangerCM)
	return p.Floor + time.Duration(frac*float64(p.Interval-p.Floor))
}
