package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/smartcane/internal/log"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CANE_"

// ApplyEnv overrides fields from CANE_* environment variables. Values that
// fail to parse are logged and ignored.
func (c *Config) ApplyEnv() {
	c.DeviceID = getEnv("DEVICE_ID", c.DeviceID)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Tick = getEnvDuration("TICK", c.Tick)
	c.Heartbeat = getEnvDuration("HEARTBEAT", c.Heartbeat)
	if v := getEnv("MODES", ""); v != "" {
		c.Modes = strings.Split(v, ",")
	}

	c.Button.Chip = getEnv("BUTTON_CHIP", c.Button.Chip)
	c.Button.Pin = getEnvInt("BUTTON_PIN", c.Button.Pin)
	c.Button.Bias = getEnv("BUTTON_BIAS", c.Button.Bias)
	c.Button.ActiveHigh = getEnvBool("BUTTON_ACTIVE_HIGH", c.Button.ActiveHigh)
	c.Motor.Chip = getEnv("MOTOR_CHIP", c.Motor.Chip)
	c.Motor.Pin = getEnvInt("MOTOR_PIN", c.Motor.Pin)
	c.Motor.Pulse = getEnvDuration("MOTOR_PULSE", c.Motor.Pulse)

	c.Sensor.Port = getEnv("SERIAL_PORT", c.Sensor.Port)
	c.Sensor.Baud = getEnvInt("SERIAL_BAUD", c.Sensor.Baud)
	c.Sensor.MinRangeMM = getEnvInt("MIN_RANGE_MM", c.Sensor.MinRangeMM)

	c.Camera.Enabled = getEnvBool("CAMERA_ENABLED", c.Camera.Enabled)
	c.Camera.Device = getEnv("CAMERA_DEVICE", c.Camera.Device)
	c.Camera.Model = getEnv("MODEL_PATH", c.Camera.Model)

	c.Speech.Script = getEnv("SPEECH_SCRIPT", c.Speech.Script)

	c.Thresholds.NearCM = getEnvFloat("NEAR_CM", c.Thresholds.NearCM)
	c.Vibration.Mode = getEnv("VIBRATION_MODE", c.Vibration.Mode)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		log.Warn("ignoring invalid integer", "var", EnvPrefix+key, "err", err)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn("ignoring invalid number", "var", EnvPrefix+key, "err", err)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn("ignoring invalid boolean", "var", EnvPrefix+key, "err", err)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue Duration) Duration {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("ignoring invalid duration", "var", EnvPrefix+key, "err", err)
		return defaultValue
	}
	return Duration(v)
}
