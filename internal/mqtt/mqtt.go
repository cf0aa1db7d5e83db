// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/smartcane/internal/logic"
)

// DefaultDeviceID names the cane in topic paths when none is configured.
const DefaultDeviceID = "smartcane"

// Topics holds the per-device MQTT topics.
type Topics struct {
	Events string
	System string
}

// TopicsFor returns the event and system topics for a device id.
func TopicsFor(deviceID string) Topics {
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}
	return Topics{
		Events: fmt.Sprintf("cane/%s/events", deviceID),
		System: fmt.Sprintf("cane/%s/system", deviceID),
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a control loop event to the broker.
	// It must not block the control loop; failures are returned, never fatal.
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Cane CanePayload `json:"cane"`
}

// CanePayload contains the event details. DistanceCM is null when the
// distance was unknown.
type CanePayload struct {
	Timestamp  string   `json:"timestamp"`
	Event      string   `json:"event"`
	Mode       string   `json:"mode"`
	DistanceCM *float64 `json:"distance_cm"`
	Text       string   `json:"text,omitempty"`
	Objects    []string `json:"objects,omitempty"`
}

// FormatPayload creates the JSON payload for a control loop event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Cane: CanePayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Mode:       string(event.Mode),
			DistanceCM: event.DistanceCM,
			Text:       event.Text,
			Objects:    event.Objects,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
