// Package status provides a thread-safe status tracker for the smartcane daemon.
// It is read by the HTTP status API and by system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/smartcane/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	DeviceID      string
	TickMs        int64
	HeartbeatMs   int64
	Modes         []logic.ModeKind
	VibrationMode string
	MinRangeMM    int
	Broker        string
	HTTPAddr      string
}

// AnnouncerStats mirrors the announcer counters.
type AnnouncerStats struct {
	Rendered uint64
	Failures uint64
	Dropped  uint64
	Evicted  uint64
	Pending  int
}

// SensorStats mirrors the ranging sensor counters.
type SensorStats struct {
	Frames     uint64
	Corrupt    uint64
	BelowRange uint64
	Failures   uint64
}

// HapticStats mirrors the vibration counters.
type HapticStats struct {
	Pulses   uint64
	Refused  uint64
	Failures uint64
}

// Components groups the per-peripheral counters.
type Components struct {
	Announcer AnnouncerStats
	Sensor    SensorStats
	Haptic    HapticStats
	Camera    bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	BootID        string
	Mode          logic.ModeKind
	DistanceCM    float64
	DistanceOK    bool
	Counts        logic.EventCounts
	Components    Components
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time, boot id and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update sets the mode, latest distance and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(mode logic.ModeKind, distanceCM float64, ok bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.DistanceCM = distanceCM
	t.snap.DistanceOK = ok
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetComponents sets the peripheral counters.
func (t *Tracker) SetComponents(c Components) {
	t.mu.Lock()
	t.snap.Components = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set from the tracker clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
