// Package config loads the daemon configuration.
//
// Values are layered: built-in defaults, then an optional TOML file, then a
// .env file and CANE_* environment variables. Command line flags are applied
// last by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/sweeney/smartcane/internal/announce"
	"github.com/sweeney/smartcane/internal/button"
	"github.com/sweeney/smartcane/internal/gpio"
	"github.com/sweeney/smartcane/internal/logic"
	"github.com/sweeney/smartcane/internal/mqtt"
	"github.com/sweeney/smartcane/internal/scheduler"
	"github.com/sweeney/smartcane/internal/sensor"
	"github.com/sweeney/smartcane/internal/status"
	"github.com/sweeney/smartcane/internal/vision"
)

// Duration is a time.Duration written as a Go duration string ("2.5s").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalText writes the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText parses a Go duration string such as "100ms".
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// ButtonConfig is the mode button line: chip, offset, bias and timings.
type ButtonConfig struct {
	Chip        string   `toml:"chip"`
	Pin         int      `toml:"pin"`
	Bias        string   `toml:"bias"`
	ActiveHigh  bool     `toml:"active_high"`
	Settle      Duration `toml:"settle"`
	Rearm       Duration `toml:"rearm"`
	MinInterval Duration `toml:"min_interval"`
}

// MotorConfig is the vibration motor output line and pulse length.
type MotorConfig struct {
	Chip  string   `toml:"chip"`
	Pin   int      `toml:"pin"`
	Pulse Duration `toml:"pulse"`
}

// SensorConfig is the UART ultrasonic sensor.
type SensorConfig struct {
	Port       string   `toml:"port"`
	Baud       int      `toml:"baud"`
	MinRangeMM int      `toml:"min_range_mm"`
	MaxAge     Duration `toml:"max_age"`
}

// CameraConfig selects the capture device and the detection model.
type CameraConfig struct {
	Enabled    bool    `toml:"enabled"`
	Device     string  `toml:"device"`
	Model      string  `toml:"model"`
	Width      int     `toml:"width"`
	Height     int     `toml:"height"`
	Confidence float64 `toml:"confidence"`
	NMS        float64 `toml:"nms"`
}

// SpeechConfig is the speech script and announcer queue.
type SpeechConfig struct {
	Script    string   `toml:"script"`
	Args      []string `toml:"args"`
	QueueSize int      `toml:"queue_size"`
	Drain     Duration `toml:"drain"`
}

// ThresholdConfig holds the distance bands in centimeters.
type ThresholdConfig struct {
	NearCM          float64 `toml:"near_cm"`
	CalloutMaxCM    float64 `toml:"callout_max_cm"`
	AnnounceUnknown bool    `toml:"announce_unknown"`
}

// IntervalConfig holds the minimum spacing per announcement class.
type IntervalConfig struct {
	Obstacle    Duration `toml:"obstacle"`
	Callout     Duration `toml:"callout"`
	Objects     Duration `toml:"objects"`
	NoDetection Duration `toml:"no_detection"`
	Unknown     Duration `toml:"unknown"`
}

// VibrationConfig is the pulse spacing policy (fixed or proportional).
type VibrationConfig struct {
	Mode     string   `toml:"mode"`
	Interval Duration `toml:"interval"`
	Floor    Duration `toml:"floor"`
	DangerCM float64  `toml:"danger_cm"`
}

// MQTTConfig enables telemetry when Broker is set.
type MQTTConfig struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	Buffer   int    `toml:"buffer"`
}

// HTTPConfig is the status API listen address. Empty disables it.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// Config is the complete daemon configuration.
type Config struct {
	DeviceID  string   `toml:"device_id"`
	LogLevel  string   `toml:"log_level"`
	Tick      Duration `toml:"tick"`
	Heartbeat Duration `toml:"heartbeat"`
	Modes     []string `toml:"modes"`

	Button     ButtonConfig    `toml:"button"`
	Motor      MotorConfig     `toml:"motor"`
	Sensor     SensorConfig    `toml:"sensor"`
	Camera     CameraConfig    `toml:"camera"`
	Speech     SpeechConfig    `toml:"speech"`
	Thresholds ThresholdConfig `toml:"thresholds"`
	Intervals  IntervalConfig  `toml:"intervals"`
	Vibration  VibrationConfig `toml:"vibration"`
	MQTT       MQTTConfig      `toml:"mqtt"`
	HTTP       HTTPConfig      `toml:"http"`

	Phrases   scheduler.Phrases `toml:"phrases"`
	Positions vision.Words      `toml:"positions"`
	// Labels overrides the spoken name of detector classes, keyed by class name.
	Labels map[string]string `toml:"labels"`
}

// Default returns the built-in configuration.
func Default() Config {
	s := scheduler.DefaultConfig()
	modes := make([]string, len(s.Modes))
	for i, m := range s.Modes {
		modes[i] = string(m)
	}
	return Config{
		DeviceID:  mqtt.DefaultDeviceID,
		LogLevel:  "info",
		Tick:      Duration(50 * time.Millisecond),
		Heartbeat: Duration(15 * time.Minute),
		Modes:     modes,
		Button: ButtonConfig{
			Chip:        gpio.DefaultChip,
			Pin:         gpio.DefaultButtonPin,
			Bias:        string(gpio.BiasPullUp),
			Settle:      Duration(button.DefaultSettle),
			Rearm:       Duration(button.DefaultRearm),
			MinInterval: Duration(button.DefaultMinInterval),
		},
		Motor: MotorConfig{
			Chip:  gpio.DefaultChip,
			Pin:   gpio.DefaultMotorPin,
			Pulse: Duration(s.Pulse),
		},
		Sensor: SensorConfig{
			Port:       sensor.DefaultPort,
			Baud:       sensor.DefaultBaud,
			MinRangeMM: sensor.DefaultMinRangeMM,
			MaxAge:     Duration(sensor.DefaultMaxAge),
		},
		Camera: CameraConfig{
			Enabled:    true,
			Device:     "0",
			Model:      "models/yolov8n.onnx",
			Width:      1280,
			Height:     720,
			Confidence: 0.5,
			NMS:        0.45,
		},
		Speech: SpeechConfig{
			Script:    announce.DefaultScript,
			QueueSize: announce.DefaultQueueSize,
			Drain:     Duration(2 * time.Second),
		},
		Thresholds: ThresholdConfig{
			NearCM:          s.NearCM,
			CalloutMaxCM:    s.CalloutMaxCM,
			AnnounceUnknown: s.AnnounceUnknown,
		},
		Intervals: IntervalConfig{
			Obstacle:    Duration(s.ObstacleInterval),
			Callout:     Duration(s.CalloutInterval),
			Objects:     Duration(s.ObjectsInterval),
			NoDetection: Duration(s.NoDetectionInterval),
			Unknown:     Duration(s.UnknownInterval),
		},
		Vibration: VibrationConfig{
			Mode:     string(s.Vibration.Mode),
			Interval: Duration(s.Vibration.Interval),
			Floor:    Duration(s.Vibration.Floor),
			DangerCM: s.Vibration.DangerCM,
		},
		MQTT: MQTTConfig{
			Buffer: mqtt.DefaultBufferSize,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Phrases:   scheduler.DefaultPhrases(),
		Positions: vision.DefaultWords(),
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is not empty), the .env file at envFile (ignored when missing) and
// the process environment. The result is validated.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Encode returns the configuration as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate rejects impossible values.
func (c Config) Validate() error {
	var errs []error
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %v", c.Tick.D()))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat.D()))
	}
	switch gpio.Bias(c.Button.Bias) {
	case gpio.BiasNone, gpio.BiasPullUp, gpio.BiasPullDown:
	default:
		errs = append(errs, fmt.Errorf("unknown button bias %q", c.Button.Bias))
	}
	if c.Button.Pin < 0 || c.Motor.Pin < 0 {
		errs = append(errs, errors.New("gpio pins must not be negative"))
	}
	if c.Button.Settle < 0 || c.Button.Rearm < 0 || c.Button.MinInterval < 0 {
		errs = append(errs, errors.New("button timings must not be negative"))
	}
	if c.Sensor.Port == "" {
		errs = append(errs, errors.New("sensor port is required"))
	}
	if c.Sensor.Baud <= 0 {
		errs = append(errs, fmt.Errorf("sensor baud must be positive, got %d", c.Sensor.Baud))
	}
	if c.Sensor.MinRangeMM < 0 {
		errs = append(errs, fmt.Errorf("min range must not be negative, got %d", c.Sensor.MinRangeMM))
	}
	if c.Sensor.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("sensor max age must be positive, got %v", c.Sensor.MaxAge.D()))
	}
	if c.Camera.Enabled && c.Camera.Model == "" {
		errs = append(errs, errors.New("camera model path is required when the camera is enabled"))
	}
	if c.Camera.Confidence < 0 || c.Camera.Confidence > 1 {
		errs = append(errs, fmt.Errorf("camera confidence must be in [0, 1], got %v", c.Camera.Confidence))
	}
	if c.Speech.Script == "" {
		errs = append(errs, errors.New("speech script is required"))
	}
	if c.Speech.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("speech queue size must be positive, got %d", c.Speech.QueueSize))
	}
	if err := c.Scheduler().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ModeKinds returns the configured mode cycle.
func (c Config) ModeKinds() []logic.ModeKind {
	out := make([]logic.ModeKind, len(c.Modes))
	for i, m := range c.Modes {
		out[i] = logic.ModeKind(strings.ToLower(strings.TrimSpace(m)))
	}
	return out
}

// Scheduler returns the control loop configuration.
func (c Config) Scheduler() scheduler.Config {
	s := scheduler.DefaultConfig()
	s.Modes = c.ModeKinds()
	s.NearCM = c.Thresholds.NearCM
	s.CalloutMaxCM = c.Thresholds.CalloutMaxCM
	s.AnnounceUnknown = c.Thresholds.AnnounceUnknown
	s.ObstacleInterval = c.Intervals.Obstacle.D()
	s.CalloutInterval = c.Intervals.Callout.D()
	s.ObjectsInterval = c.Intervals.Objects.D()
	s.NoDetectionInterval = c.Intervals.NoDetection.D()
	s.UnknownInterval = c.Intervals.Unknown.D()
	s.Pulse = c.Motor.Pulse.D()
	s.Vibration = logic.VibrationPolicy{
		Mode:     logic.VibrationMode(c.Vibration.Mode),
		Interval: c.Vibration.Interval.D(),
		Floor:    c.Vibration.Floor.D(),
		NearCM:   c.Thresholds.NearCM,
		DangerCM: c.Vibration.DangerCM,
	}
	s.Phrases = c.Phrases
	return s
}

// ButtonInput returns the GPIO request for the button line.
func (c Config) ButtonInput() gpio.InputConfig {
	edge := gpio.EdgeFalling
	if c.Button.ActiveHigh {
		edge = gpio.EdgeRising
	}
	return gpio.InputConfig{
		Chip:   c.Button.Chip,
		Offset: c.Button.Pin,
		Bias:   gpio.Bias(c.Button.Bias),
		Edge:   edge,
	}
}

// ButtonTiming returns the debounce configuration.
func (c Config) ButtonTiming() button.Config {
	return button.Config{
		PressedLevel: c.Button.ActiveHigh,
		Settle:       c.Button.Settle.D(),
		Rearm:        c.Button.Rearm.D(),
		MinInterval:  c.Button.MinInterval.D(),
	}
}

// Ultrasonic returns the ranging poller configuration.
func (c Config) Ultrasonic() sensor.UltrasonicConfig {
	return sensor.UltrasonicConfig{
		MaxAge:     c.Sensor.MaxAge.D(),
		MinRangeMM: c.Sensor.MinRangeMM,
	}
}

// Announcer returns the speech queue configuration.
func (c Config) Announcer() announce.Config {
	return announce.Config{QueueSize: c.Speech.QueueSize}
}

// Describer returns the detection phrase builder.
func (c Config) Describer() *vision.Describer {
	return vision.NewDescriber(c.Labels, c.Positions)
}

// MQTTOptions returns the publisher options.
func (c Config) MQTTOptions() mqtt.Options {
	return mqtt.Options{
		Broker:     c.MQTT.Broker,
		ClientID:   c.MQTT.ClientID,
		DeviceID:   c.DeviceID,
		BufferSize: c.MQTT.Buffer,
	}
}

// Status returns the configuration summary shown by the status API.
func (c Config) Status() status.Config {
	return status.Config{
		DeviceID:      c.DeviceID,
		TickMs:        c.Tick.D().Milliseconds(),
		HeartbeatMs:   c.Heartbeat.D().Milliseconds(),
		Modes:         c.ModeKinds(),
		VibrationMode: c.Vibration.Mode,
		MinRangeMM:    c.Sensor.MinRangeMM,
		Broker:        c.MQTT.Broker,
		HTTPAddr:      c.HTTP.Addr,
	}
}
