package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	BootID        string         `json:"boot_id"`
	Mode          string         `json:"mode"`
	DistanceCM    *float64       `json:"distance_cm"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	Components    ComponentsJSON `json:"components"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Presses         int `json:"presses"`
	ModeChanges     int `json:"mode_changes"`
	Obstacles       int `json:"obstacles"`
	Callouts        int `json:"callouts"`
	Objects         int `json:"objects"`
	NoDetections    int `json:"no_detections"`
	DistanceUnknown int `json:"distance_unknown"`
	Vibrations      int `json:"vibrations"`
}

// ComponentsJSON is the JSON representation of peripheral counters.
type ComponentsJSON struct {
	Announcer struct {
		Rendered uint64 `json:"rendered"`
		Failures uint64 `json:"failures"`
		Dropped  uint64 `json:"dropped"`
		Evicted  uint64 `json:"evicted"`
		Pending  int    `json:"pending"`
	} `json:"announcer"`
	Sensor struct {
		Frames     uint64 `json:"frames"`
		Corrupt    uint64 `json:"corrupt"`
		BelowRange uint64 `json:"below_range"`
		Failures   uint64 `json:"failures"`
	} `json:"sensor"`
	Haptic struct {
		Pulses   uint64 `json:"pulses"`
		Refused  uint64 `json:"refused"`
		Failures uint64 `json:"failures"`
	} `json:"haptic"`
	Camera bool `json:"camera"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DeviceID      string   `json:"device_id"`
	TickMs        int64    `json:"tick_ms"`
	HeartbeatMs   int64    `json:"heartbeat_ms"`
	Modes         []string `json:"modes"`
	VibrationMode string   `json:"vibration_mode"`
	MinRangeMM    int      `json:"min_range_mm"`
	Broker        string   `json:"broker"`
	HTTPAddr      string   `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}
	var dist *float64
	if snap.DistanceOK {
		d := math.Round(snap.DistanceCM*10) / 10
		dist = &d
	}
	modes := make([]string, len(snap.Config.Modes))
	for i, m := range snap.Config.Modes {
		modes[i] = string(m)
	}

	inner := StatusInner{
		BootID:        snap.BootID,
		Mode:          mode,
		DistanceCM:    dist,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:         snap.Counts.Presses,
			ModeChanges:     snap.Counts.ModeChanges,
			Obstacles:       snap.Counts.Obstacles,
			Callouts:        snap.Counts.Callouts,
			Objects:         snap.Counts.Objects,
			NoDetections:    snap.Counts.NoDetections,
			DistanceUnknown: snap.Counts.DistanceUnknown,
			Vibrations:      snap.Counts.Vibrations,
		},
		Config: ConfigJSON{
			DeviceID:      snap.Config.DeviceID,
			TickMs:        snap.Config.TickMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Modes:         modes,
			VibrationMode: snap.Config.VibrationMode,
			MinRangeMM:    snap.Config.MinRangeMM,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}

	c := snap.Components
	inner.Components.Announcer.Rendered = c.Announcer.Rendered
	inner.Components.Announcer.Failures = c.Announcer.Failures
	inner.Components.Announcer.Dropped = c.Announcer.Dropped
	inner.Components.Announcer.Evicted = c.Announcer.Evicted
	inner.Components.Announcer.Pending = c.Announcer.Pending
	inner.Components.Sensor.Frames = c.Sensor.Frames
	inner.Components.Sensor.Corrupt = c.Sensor.Corrupt
	inner.Components.Sensor.BelowRange = c.Sensor.BelowRange
	inner.Components.Sensor.Failures = c.Sensor.Failures
	inner.Components.Haptic.Pulses = c.Haptic.Pulses
	inner.Components.Haptic.Refused = c.Haptic.Refused
	inner.Components.Haptic.Failures = c.Haptic.Failures
	inner.Components.Camera = c.Camera

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// Build returns the status document for a snapshot (no event/reason).
func Build(snap Snapshot) StatusJSON {
	return StatusJSON{Status: buildInner(snap)}
}

// FormatJSON returns the indented JSON status for the command line.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(Build(snap), "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
