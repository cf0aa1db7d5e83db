package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/smartcane/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		DeviceID:      "hall",
		TickMs:        50,
		HeartbeatMs:   900000,
		Modes:         []logic.ModeKind{logic.ModeWalk, logic.ModeExplore},
		VibrationMode: "fixed",
		MinRangeMM:    300,
		Broker:        "tcp://localhost:1883",
		HTTPAddr:      ":8080",
	}
}

func TestNewTracker(t *testing.T) {
	tr := NewTracker(start, "boot-1", testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.BootID != "boot-1" {
		t.Errorf("BootID: got %q", snap.BootID)
	}
	if snap.Config.DeviceID != "hall" {
		t.Errorf("Config.DeviceID: got %q", snap.Config.DeviceID)
	}
	if snap.DistanceOK {
		t.Error("expected unknown distance initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	tr.Update(logic.ModeWalk, 142.5, true, logic.EventCounts{Obstacles: 3, Vibrations: 2})
	tr.SetComponents(Components{Sensor: SensorStats{Frames: 40, Corrupt: 1}, Camera: true})
	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Mode != logic.ModeWalk || snap.DistanceCM != 142.5 || !snap.DistanceOK {
		t.Errorf("unexpected mode/distance: %+v", snap)
	}
	if snap.Counts.Obstacles != 3 || snap.Counts.Vibrations != 2 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
	if snap.Components.Sensor.Frames != 40 || !snap.Components.Camera {
		t.Errorf("unexpected components: %+v", snap.Components)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	if snap.Network == nil || snap.Network.IP != "192.168.1.42" {
		t.Errorf("unexpected network: %+v", snap.Network)
	}
}

func TestSnapshotUsesClock(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	tr.SetClock(func() time.Time { return start.Add(15 * time.Minute) })

	if got := tr.Snapshot().Uptime(); got != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	tr.Update(logic.ModeWalk, 100, true, logic.EventCounts{})
	snap1 := tr.Snapshot()

	tr.Update(logic.ModeExplore, 0, false, logic.EventCounts{ModeChanges: 1})

	if snap1.Mode != logic.ModeWalk || !snap1.DistanceOK {
		t.Error("snapshot should be a copy")
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		BootID:     "boot-1",
		Mode:       logic.ModeMixed,
		DistanceCM: 87.3333,
		DistanceOK: true,
		Counts:     logic.EventCounts{Presses: 2, ModeChanges: 2, Obstacles: 5},
		Components: Components{
			Announcer: AnnouncerStats{Rendered: 9, Evicted: 4},
			Haptic:    HapticStats{Pulses: 5, Refused: 1},
		},
		StartTime:     start,
		Now:           start.Add(90 * time.Second),
		MQTTConnected: true,
		Config:        testConfig(),
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.Event != "" || s.Reason != "" {
		t.Error("web status should not carry event or reason")
	}
	if s.Mode != "mixed" || s.BootID != "boot-1" {
		t.Errorf("unexpected identity: mode=%s boot=%s", s.Mode, s.BootID)
	}
	if s.DistanceCM == nil || *s.DistanceCM != 87.3 {
		t.Errorf("expected distance 87.3, got %v", s.DistanceCM)
	}
	if s.UptimeSeconds != 90 {
		t.Errorf("uptime: got %d", s.UptimeSeconds)
	}
	if s.Counts.Obstacles != 5 || s.Counts.Presses != 2 {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	if s.Components.Announcer.Evicted != 4 || s.Components.Haptic.Refused != 1 {
		t.Errorf("unexpected components: %+v", s.Components)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("unexpected mqtt: %+v", s.MQTT)
	}
	if len(s.Config.Modes) != 2 || s.Config.Modes[1] != "explore" {
		t.Errorf("unexpected modes: %v", s.Config.Modes)
	}
	if s.Network != nil {
		t.Error("network should be omitted when unknown")
	}
}

func TestFormatJSONUnknownDistance(t *testing.T) {
	data := FormatJSON(Snapshot{StartTime: start, Now: start})

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	d, exists := raw["status"]["distance_cm"]
	if !exists || d != nil {
		t.Errorf("expected distance_cm null, got %v (exists=%v)", d, exists)
	}
	if raw["status"]["mode"] != "UNKNOWN" {
		t.Errorf("expected UNKNOWN mode, got %v", raw["status"]["mode"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Mode:      logic.ModeWalk,
		StartTime: start,
		Now:       start,
		Network:   &NetworkInfo{Type: "wifi", SSID: "MyNet"},
	}

	tests := []struct {
		event  string
		reason string
	}{
		{"STARTUP", ""},
		{"SHUTDOWN", "SIGTERM"},
		{"HEARTBEAT", ""},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			data := FormatStatusEvent(snap, tt.event, tt.reason)

			var raw map[string]map[string]interface{}
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			inner := raw["status"]
			if inner["event"] != tt.event {
				t.Errorf("event: got %v", inner["event"])
			}
			_, hasReason := inner["reason"]
			if hasReason != (tt.reason != "") {
				t.Errorf("reason present=%v, want %v", hasReason, tt.reason != "")
			}
			if inner["network"].(map[string]interface{})["ssid"] != "MyNet" {
				t.Errorf("network not included: %v", inner["network"])
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, "", Config{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.ModeWalk, float64(i), i%3 != 0, logic.EventCounts{Obstacles: i})
			tr.SetComponents(Components{Haptic: HapticStats{Pulses: uint64(i)}})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = FormatJSON(tr.Snapshot())
		}
	}()
	wg.Wait()
}
