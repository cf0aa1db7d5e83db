package logic

import "time"

// PressGate decides whether a pressed reading may become a press event.
//
// A gate fires at most once per physical depression. After firing it stays
// disarmed until the line has been observed at the released level for at
// least the re-arm interval, and it never fires twice within the minimum
// inter-press interval regardless of arming. Both the polling path and the
// edge-interrupt path go through the same gate.
type PressGate struct {
	rearm    time.Duration
	minGap   time.Duration
	armed    bool
	released bool
	since    time.Time // when the current released run began
	lastFire time.Time
	fired    bool
}

// NewPressGate creates a gate. The gate starts disarmed so a button held
// down at boot does not fire until it has been released.
func NewPressGate(rearm, minGap time.Duration) *PressGate {
	return &PressGate{rearm: rearm, minGap: minGap}
}

// Released records a released-level observation at now.
func (g *PressGate) Released(now time.Time) {
	if !g.released {
		g.released = true
		g.since = now
	}
	if now.Sub(g.since) >= g.rearm {
		g.armed = true
	}
}

// Pressed records a pressed-level observation. It ends any released run
// without firing.
func (g *PressGate) Pressed() {
	g.released = false
}

// Ready reports whether a press observed at now may fire (after settling).
func (g *PressGate) Ready(now time.Time) bool {
	if !g.armed {
		return false
	}
	if g.fired && now.Sub(g.lastFire) < g.minGap {
		return false
	}
	return true
}

// Fire records a confirmed press at now and disarms the gate.
func (g *PressGate) Fire(now time.Time) {
	g.armed = false
	g.released = false
	g.fired = true
	g.lastFire = now
}

// Armed reports whether the gate is armed.
func (g *PressGate) Armed() bool {
	return g.armed
}
