package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/sweeney/smartcane/internal/gpio"
	"github.com/sweeney/smartcane/internal/logic"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Sensor.MinRangeMM != 300 {
		t.Errorf("MinRangeMM: got %d, want 300", cfg.Sensor.MinRangeMM)
	}
	if cfg.Sensor.Port != "/dev/ttyTHS1" || cfg.Sensor.Baud != 9600 {
		t.Errorf("unexpected serial defaults: %+v", cfg.Sensor)
	}
	if cfg.Motor.Pulse.D() != 100*time.Millisecond {
		t.Errorf("Pulse: got %v, want 100ms", cfg.Motor.Pulse.D())
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DeviceID != "smartcane" {
		t.Errorf("DeviceID: got %q", cfg.DeviceID)
	}
}

const sampleTOML = `
device_id = "hall"
tick = "20ms"
modes = ["explore", "walk"]

[sensor]
min_range_mm = 250

[vibration]
mode = "proportional"

[phrases]
started = "Le système a démarré"

[phrases.mode_names]
walk = "marche"
explore = "exploration"

[positions]
left = "à gauche"

[labels]
person = "personne"
`

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "cane.toml", sampleTOML), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DeviceID != "hall" || cfg.Tick.D() != 20*time.Millisecond {
		t.Errorf("top-level fields not loaded: %q %v", cfg.DeviceID, cfg.Tick.D())
	}
	modes := cfg.ModeKinds()
	if len(modes) != 2 || modes[0] != logic.ModeExplore || modes[1] != logic.ModeWalk {
		t.Errorf("unexpected modes: %v", modes)
	}
	if cfg.Sensor.MinRangeMM != 250 {
		t.Errorf("MinRangeMM: got %d", cfg.Sensor.MinRangeMM)
	}
	if cfg.Sensor.Port != "/dev/ttyTHS1" {
		t.Errorf("unset fields should keep defaults, Port=%q", cfg.Sensor.Port)
	}
	if cfg.Scheduler().Vibration.Mode != logic.VibrationProportional {
		t.Errorf("vibration mode: got %q", cfg.Scheduler().Vibration.Mode)
	}
	if cfg.Phrases.Started != "Le système a démarré" {
		t.Errorf("Started phrase: got %q", cfg.Phrases.Started)
	}
	if cfg.Phrases.Obstacle != "Obstacle {meters} meters" {
		t.Errorf("untouched phrase changed: %q", cfg.Phrases.Obstacle)
	}
	if cfg.Phrases.ModeNames["walk"] != "marche" {
		t.Errorf("mode names not loaded: %v", cfg.Phrases.ModeNames)
	}
	if cfg.Positions.Left != "à gauche" || cfg.Positions.Center != "ahead" {
		t.Errorf("unexpected positions: %+v", cfg.Positions)
	}
	if got := cfg.Describer().Label(0); got != "personne" {
		t.Errorf("label override: got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		want string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.toml") }, "read config"},
		{"bad syntax", func(t *testing.T) string { return writeFile(t, "bad.toml", "tick = \n") }, "parse config"},
		{"bad duration", func(t *testing.T) string { return writeFile(t, "bad.toml", `tick = "soon"`) }, "parse config"},
		{"invalid value", func(t *testing.T) string { return writeFile(t, "bad.toml", `modes = ["run"]`) }, "invalid config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t), "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CANE_MIN_RANGE_MM", "400")
	t.Setenv("CANE_MODES", "walk,Mixed")
	t.Setenv("CANE_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("CANE_CAMERA_ENABLED", "false")
	t.Setenv("CANE_TICK", "fast")

	cfg, err := Load(writeFile(t, "cane.toml", sampleTOML), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sensor.MinRangeMM != 400 {
		t.Errorf("MinRangeMM: got %d, want 400", cfg.Sensor.MinRangeMM)
	}
	modes := cfg.ModeKinds()
	if len(modes) != 2 || modes[1] != logic.ModeMixed {
		t.Errorf("unexpected modes: %v", modes)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" || cfg.MQTTOptions().DeviceID != "hall" {
		t.Errorf("unexpected mqtt options: %+v", cfg.MQTTOptions())
	}
	if cfg.Camera.Enabled {
		t.Error("expected camera disabled")
	}
	if cfg.Tick.D() != 20*time.Millisecond {
		t.Errorf("invalid env duration should be ignored, tick=%v", cfg.Tick.D())
	}
}

func TestDotEnvFile(t *testing.T) {
	t.Setenv("CANE_DEVICE_ID", "from-env")
	t.Cleanup(func() { os.Unsetenv("CANE_HTTP_ADDR") })

	env := writeFile(t, ".env", "CANE_DEVICE_ID=from-dotenv\nCANE_HTTP_ADDR=:9090\n")
	cfg, err := Load("", env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr: got %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.DeviceID != "from-env" {
		t.Errorf("process environment should win over .env, got %q", cfg.DeviceID)
	}
}

func TestMissingDotEnvIgnored(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero tick", func(c *Config) { c.Tick = 0 }},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -1 }},
		{"unknown bias", func(c *Config) { c.Button.Bias = "floating" }},
		{"negative pin", func(c *Config) { c.Motor.Pin = -1 }},
		{"no port", func(c *Config) { c.Sensor.Port = "" }},
		{"zero baud", func(c *Config) { c.Sensor.Baud = 0 }},
		{"negative min range", func(c *Config) { c.Sensor.MinRangeMM = -5 }},
		{"zero max age", func(c *Config) { c.Sensor.MaxAge = 0 }},
		{"camera without model", func(c *Config) { c.Camera.Model = "" }},
		{"confidence above one", func(c *Config) { c.Camera.Confidence = 1.5 }},
		{"no script", func(c *Config) { c.Speech.Script = "" }},
		{"empty queue", func(c *Config) { c.Speech.QueueSize = 0 }},
		{"empty modes", func(c *Config) { c.Modes = nil }},
		{"unknown mode", func(c *Config) { c.Modes = []string{"walk", "run"} }},
		{"callout below near", func(c *Config) { c.Thresholds.CalloutMaxCM = 100 }},
		{"zero obstacle interval", func(c *Config) { c.Intervals.Obstacle = 0 }},
		{"unknown vibration mode", func(c *Config) { c.Vibration.Mode = "pulse" }},
		{"pulse longer than vibration interval", func(c *Config) { c.Motor.Pulse = Duration(2 * time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCameraDisabledNeedsNoModel(t *testing.T) {
	cfg := Default()
	cfg.Camera.Enabled = false
	cfg.Camera.Model = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestButtonInput(t *testing.T) {
	cfg := Default()
	in := cfg.ButtonInput()
	if in.Chip != "gpiochip0" || in.Offset != gpio.DefaultButtonPin {
		t.Errorf("unexpected line: %+v", in)
	}
	if in.Bias != gpio.BiasPullUp || in.Edge != gpio.EdgeFalling {
		t.Errorf("active-low button should pull up and watch falling edges: %+v", in)
	}
	if cfg.ButtonTiming().PressedLevel {
		t.Error("active-low button is pressed at low level")
	}

	cfg.Button.ActiveHigh = true
	if cfg.ButtonInput().Edge != gpio.EdgeRising || !cfg.ButtonTiming().PressedLevel {
		t.Error("active-high button should watch rising edges")
	}
}

func TestSchedulerMapping(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.NearCM = 150
	cfg.Intervals.Obstacle = Duration(4 * time.Second)

	s := cfg.Scheduler()
	if s.NearCM != 150 || s.Vibration.NearCM != 150 {
		t.Errorf("near threshold not shared with vibration policy: %v %v", s.NearCM, s.Vibration.NearCM)
	}
	if s.ObstacleInterval != 4*time.Second {
		t.Errorf("ObstacleInterval: got %v", s.ObstacleInterval)
	}
	if s.Pulse != cfg.Motor.Pulse.D() {
		t.Errorf("Pulse: got %v", s.Pulse)
	}
}

func TestEncodeWritesDurationsAsStrings(t *testing.T) {
	b, err := Default().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(b), "50ms") {
		t.Errorf("expected tick written as a duration string:\n%s", b)
	}

	var back Config
	if err := toml.Unmarshal(b, &back); err != nil {
		t.Fatalf("encoded config does not parse: %v", err)
	}
	if back.Intervals.Obstacle.D() != 2500*time.Millisecond {
		t.Errorf("obstacle interval: got %v", back.Intervals.Obstacle.D())
	}
}
