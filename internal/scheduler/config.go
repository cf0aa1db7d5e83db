package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/smartcane/internal/logic"
)

// Phrases are the spoken templates. {mode}, {meters} and {objects} are
// replaced at runtime.
type Phrases struct {
	Started           string            `toml:"started"`
	Mode              string            `toml:"mode"`
	ModeNames         map[string]string `toml:"mode_names"`
	Obstacle          string            `toml:"obstacle"`
	Distance          string            `toml:"distance"`
	ObjectsDistance   string            `toml:"objects_distance"`
	Unknown           string            `toml:"unknown"`
	NoDetection       string            `toml:"no_detection"`
	CameraUnavailable string            `toml:"camera_unavailable"`
}

// DefaultPhrases returns the English phrases.
func DefaultPhrases() Phrases {
	return Phrases{
		Started:           "System started",
		Mode:              "Mode {mode}",
		Obstacle:          "Obstacle {meters} meters",
		Distance:          "{meters} meters",
		ObjectsDistance:   "{objects}, {meters} meters",
		Unknown:           "Distance unavailable",
		NoDetection:       "No object detected",
		CameraUnavailable: "Camera unavailable",
	}
}

func (p Phrases) modeName(m logic.ModeKind) string {
	if n, ok := p.ModeNames[string(m)]; ok && n != "" {
		return n
	}
	return string(m)
}

func expand(tmpl string, kv ...string) string {
	return strings.NewReplacer(kv...).Replace(tmpl)
}

// Config holds thresholds, rate limits and phrases for the control loop.
type Config struct {
	Modes []logic.ModeKind

	NearCM       float64 // obstacle threshold
	CalloutMaxCM float64 // farthest distance called out in walk mode

	ObstacleInterval    time.Duration
	CalloutInterval     time.Duration
	ObjectsInterval     time.Duration
	NoDetectionInterval time.Duration
	UnknownInterval     time.Duration
	AnnounceUnknown     bool

	Pulse     time.Duration
	Vibration logic.VibrationPolicy

	// FaultLogInterval throttles per-device fault logs.
	FaultLogInterval time.Duration

	Phrases Phrases
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Modes:               []logic.ModeKind{logic.ModeWalk, logic.ModeExplore, logic.ModeMixed},
		NearCM:              200,
		CalloutMaxCM:        500,
		ObstacleInterval:    2500 * time.Millisecond,
		CalloutInterval:     3 * time.Second,
		ObjectsInterval:     2 * time.Second,
		NoDetectionInterval: 3 * time.Second,
		UnknownInterval:     3 * time.Second,
		AnnounceUnknown:     true,
		Pulse:               100 * time.Millisecond,
		Vibration: logic.VibrationPolicy{
			Mode:     logic.VibrationFixed,
			Interval: time.Second,
			Floor:    200 * time.Millisecond,
			NearCM:   200,
			DangerCM: 50,
		},
		FaultLogInterval: 5 * time.Second,
		Phrases:          DefaultPhrases(),
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	var errs []error
	if _, err := logic.NewModeCycle(c.Modes); err != nil {
		errs = append(errs, err)
	}
	if c.NearCM <= 0 {
		errs = append(errs, fmt.Errorf("near threshold must be positive, got %v", c.NearCM))
	}
	if c.CalloutMaxCM < c.NearCM {
		errs = append(errs, fmt.Errorf("callout max %v must not be below near threshold %v", c.CalloutMaxCM, c.NearCM))
	}
	for name, d := range map[string]time.Duration{
		"obstacle interval":     c.ObstacleInterval,
		"callout interval":      c.CalloutInterval,
		"objects interval":      c.ObjectsInterval,
		"no-detection interval": c.NoDetectionInterval,
		"unknown interval":      c.UnknownInterval,
		"pulse":                 c.Pulse,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	if c.Pulse > 0 && c.Pulse >= c.Vibration.Interval {
		errs = append(errs, fmt.Errorf("pulse %v must be shorter than the vibration interval %v", c.Pulse, c.Vibration.Interval))
	}
	if c.Vibration.Mode == logic.VibrationProportional && c.Pulse > 0 && c.Pulse >= c.Vibration.Floor {
		errs = append(errs, fmt.Errorf("pulse %v must be shorter than the vibration floor %v", c.Pulse, c.Vibration.Floor))
	}
	if err := c.Vibration.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
