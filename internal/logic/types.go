// Package logic contains pure decision logic for the cane control loop.
// This package has NO external dependencies (no GPIO, serial, audio, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// ModeKind identifies the behavior a mode runs each tick.
type ModeKind string

const (
	ModeWalk    ModeKind = "walk"
	ModeExplore ModeKind = "explore"
	ModeMixed   ModeKind = "mixed"
)

// Valid reports whether k is a known mode kind.
func (k ModeKind) Valid() bool {
	switch k {
	case ModeWalk, ModeExplore, ModeMixed:
		return true
	}
	return false
}

// EventType represents something the control loop did that observers may care about.
type EventType string

const (
	EventModeChanged     EventType = "MODE_CHANGED"
	EventObstacle        EventType = "OBSTACLE"
	EventDistance        EventType = "DISTANCE"
	EventObjects         EventType = "OBJECTS"
	EventNoDetection     EventType = "NO_DETECTION"
	EventDistanceUnknown EventType = "DISTANCE_UNKNOWN"
	EventVibration       EventType = "VIBRATION"
	EventHeartbeat       EventType = "HEARTBEAT"
)

// Event represents a single control loop decision to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Mode      ModeKind
	// DistanceCM is nil when the distance was unknown at the time of the event.
	DistanceCM *float64
	// Text is the announcement enqueued for this event, if any.
	Text    string
	Objects []string
	// Heartbeat is set only for EventHeartbeat.
	Heartbeat *HeartbeatData
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Presses         int
	ModeChanges     int
	Obstacles       int
	Callouts        int
	Objects         int
	NoDetections    int
	DistanceUnknown int
	Vibrations      int
}

// Count increments the counter matching the event type.
func (c *EventCounts) Count(t EventType) {
	switch t {
	case EventModeChanged:
		c.ModeChanges++
	case EventObstacle:
		c.Obstacles++
	case EventDistance:
		c.Callouts++
	case EventObjects:
		c.Objects++
	case EventNoDetection:
		c.NoDetections++
	case EventDistanceUnknown:
		c.DistanceUnknown++
	case EventVibration:
		c.Vibrations++
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Mode      ModeKind
	Counts    EventCounts
}
