// Package scheduler is the cane's control loop: it reads the button and the
// sensors once per tick and decides what to say and when to vibrate.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sweeney/smartcane/internal/announce"
	"github.com/sweeney/smartcane/internal/log"
	"github.com/sweeney/smartcane/internal/logic"
	"github.com/sweeney/smartcane/internal/vision"
)

// Button reports debounced presses.
type Button interface {
	Poll() (bool, error)
}

// Ranger reports the latest fresh distance in centimeters.
type Ranger interface {
	Distance() (float64, bool)
}

// Speaker queues announcements without blocking.
type Speaker interface {
	Enqueue(text string, class announce.Class) error
}

// Vibrator starts a pulse without blocking. It returns false if it refused.
type Vibrator interface {
	Trigger(d time.Duration) bool
}

// Deps are the components the scheduler drives. Detector may be nil when
// no camera is available.
type Deps struct {
	Button    Button
	Ranger    Ranger
	Detector  vision.Detector
	Describer *vision.Describer
	Speaker   Speaker
	Vibrator  Vibrator
}

var errNoCamera = errors.New("no camera")

// Scheduler owns the mode cycle and the rate limiters. Not safe for
// concurrent use; Tick is called from the control goroutine only.
type Scheduler struct {
	cfg   Config
	deps  Deps
	modes *logic.ModeCycle

	obstacle    *logic.RateLimiter
	callout     *logic.RateLimiter
	objects     *logic.RateLimiter
	noDetection *logic.RateLimiter
	unknown     *logic.RateLimiter
	camera      *logic.RateLimiter
	vibration   *logic.RateLimiter
	heartbeat   *logic.RateLimiter
	faultLogs   map[string]*logic.RateLimiter

	startTime  time.Time
	distance   float64
	distanceOK bool
	counts     logic.EventCounts
	events     []logic.Event
}

// New creates a scheduler in the first mode of the cycle.
func New(cfg Config, deps Deps, startTime time.Time) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Button == nil || deps.Ranger == nil || deps.Speaker == nil || deps.Vibrator == nil {
		return nil, errors.New("scheduler: button, ranger, speaker and vibrator are required")
	}
	if deps.Describer == nil {
		deps.Describer = vision.NewDescriber(nil, vision.DefaultWords())
	}
	modes, err := logic.NewModeCycle(cfg.Modes)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:         cfg,
		deps:        deps,
		modes:       modes,
		obstacle:    logic.NewRateLimiter(cfg.ObstacleInterval),
		callout:     logic.NewRateLimiter(cfg.CalloutInterval),
		objects:     logic.NewRateLimiter(cfg.ObjectsInterval),
		noDetection: logic.NewRateLimiter(cfg.NoDetectionInterval),
		unknown:     logic.NewRateLimiter(cfg.UnknownInterval),
		camera:      logic.NewRateLimiter(cfg.UnknownInterval),
		vibration:   logic.NewRateLimiter(cfg.Vibration.Interval),
		heartbeat:   logic.NewRateLimiter(0),
		faultLogs:   make(map[string]*logic.RateLimiter),
		startTime:   startTime,
	}
	// The first heartbeat is due one interval after start.
	s.heartbeat.Allow(startTime)
	return s, nil
}

// Greet queues the startup announcement and the initial mode name.
func (s *Scheduler) Greet() {
	s.say(s.cfg.Phrases.Started, announce.Priority)
	s.say(s.modePhrase(s.modes.Current()), announce.Priority)
}

// Tick runs one iteration of the control loop at now and returns the
// events it produced.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []logic.Event {
	s.events = nil

	pressed, err := s.deps.Button.Poll()
	if err != nil {
		s.logFault("button", now, err)
	} else if pressed {
		s.counts.Presses++
		mode := s.modes.Advance()
		text := s.modePhrase(mode)
		s.say(text, announce.Priority)
		log.Info("mode changed", "mode", mode)
		s.emit(now, logic.Event{Type: logic.EventModeChanged, Text: text})
		return s.events
	}

	switch s.modes.Current() {
	case logic.ModeWalk:
		s.walk(now)
	case logic.ModeExplore:
		s.explore(ctx, now)
	case logic.ModeMixed:
		s.mixed(ctx, now)
	}
	return s.events
}

func (s *Scheduler) walk(now time.Time) {
	d, ok := s.readDistance()
	if !ok {
		s.unknownDistance(now)
		return
	}
	switch {
	case d < s.cfg.NearCM:
		s.obstacleAhead(now, d, nil)
		s.vibrate(now, d)
	case d <= s.cfg.CalloutMaxCM:
		if s.callout.Allow(now) {
			text := expand(s.cfg.Phrases.Distance, "{meters}", logic.FormatMeters(d))
			s.say(text, announce.Normal)
			s.emit(now, logic.Event{Type: logic.EventDistance, DistanceCM: ptr(d), Text: text})
		}
	}
}

func (s *Scheduler) explore(ctx context.Context, now time.Time) {
	dets, err := s.detect(ctx)
	if err != nil {
		s.logFault("camera", now, err)
		if s.camera.Allow(now) {
			s.say(s.cfg.Phrases.CameraUnavailable, announce.Normal)
		}
		return
	}

	descs := s.deps.Describer.Describe(dets)
	if len(descs) == 0 {
		if s.noDetection.Allow(now) {
			text := s.cfg.Phrases.NoDetection
			s.say(text, announce.Normal)
			s.emit(now, logic.Event{Type: logic.EventNoDetection, Text: text})
		}
		return
	}

	if s.objects.Allow(now) {
		text := strings.Join(descs, ", ")
		s.say(text, announce.Normal)
		s.emit(now, logic.Event{Type: logic.EventObjects, Text: text, Objects: descs})
	}
}

func (s *Scheduler) mixed(ctx context.Context, now time.Time) {
	d, ok := s.readDistance()
	if ok && d < s.cfg.NearCM {
		var centered []string
		dets, err := s.detect(ctx)
		if err != nil {
			s.logFault("camera", now, err)
		} else {
			centered = s.deps.Describer.DescribeCenter(dets)
		}
		s.obstacleAhead(now, d, centered)
		s.vibrate(now, d)
		return
	}

	// Keep the camera pipeline drained so frames do not back up.
	if s.deps.Detector != nil {
		if _, err := s.deps.Detector.Detect(ctx); err != nil {
			s.logFault("camera", now, err)
		}
	}
	if !ok {
		s.unknownDistance(now)
	}
}

func (s *Scheduler) obstacleAhead(now time.Time, d float64, objects []string) {
	if !s.obstacle.Allow(now) {
		return
	}
	meters := logic.FormatMeters(d)
	text := expand(s.cfg.Phrases.Obstacle, "{meters}", meters)
	if len(objects) > 0 {
		text = expand(s.cfg.Phrases.ObjectsDistance, "{objects}", strings.Join(objects, ", "), "{meters}", meters)
	}
	s.say(text, announce.Normal)
	s.emit(now, logic.Event{Type: logic.EventObstacle, DistanceCM: ptr(d), Text: text, Objects: objects})
}

func (s *Scheduler) vibrate(now time.Time, d float64) {
	if !s.vibration.Eligible(now, s.cfg.Vibration.IntervalFor(d)) {
		return
	}
	// A refused pulse leaves the slot open so the next tick retries.
	if !s.deps.Vibrator.Trigger(s.cfg.Pulse) {
		return
	}
	s.vibration.Record(now)
	s.emit(now, logic.Event{Type: logic.EventVibration, DistanceCM: ptr(d)})
}

func (s *Scheduler) unknownDistance(now time.Time) {
	if !s.cfg.AnnounceUnknown || !s.unknown.Allow(now) {
		return
	}
	text := s.cfg.Phrases.Unknown
	s.say(text, announce.Normal)
	s.emit(now, logic.Event{Type: logic.EventDistanceUnknown, Text: text})
}

func (s *Scheduler) readDistance() (float64, bool) {
	s.distance, s.distanceOK = s.deps.Ranger.Distance()
	return s.distance, s.distanceOK
}

func (s *Scheduler) detect(ctx context.Context) ([]vision.Detection, error) {
	if s.deps.Detector == nil {
		return nil, errNoCamera
	}
	return s.deps.Detector.Detect(ctx)
}

func (s *Scheduler) say(text string, class announce.Class) {
	if text == "" {
		return
	}
	if err := s.deps.Speaker.Enqueue(text, class); err != nil {
		log.Warn("announcement dropped", "text", text, "class", class.String(), "err", err)
	}
}

func (s *Scheduler) emit(now time.Time, e logic.Event) {
	e.Timestamp = now
	e.Mode = s.modes.Current()
	s.counts.Count(e.Type)
	s.events = append(s.events, e)
}

func (s *Scheduler) modePhrase(m logic.ModeKind) string {
	return expand(s.cfg.Phrases.Mode, "{mode}", s.cfg.Phrases.modeName(m))
}

// logFault logs a peripheral fault at most once per fault log interval per device.
func (s *Scheduler) logFault(device string, now time.Time, err error) {
	lim, ok := s.faultLogs[device]
	if !ok {
		lim = logic.NewRateLimiter(s.cfg.FaultLogInterval)
		s.faultLogs[device] = lim
	}
	if lim.Allow(now) {
		log.Warn("peripheral fault", "device", device, "err", err)
	}
}

// Mode returns the active mode.
func (s *Scheduler) Mode() logic.ModeKind {
	return s.modes.Current()
}

// Distance returns the distance read during the last tick, if any.
func (s *Scheduler) Distance() (float64, bool) {
	return s.distance, s.distanceOK
}

// Counts returns a copy of the event counters.
func (s *Scheduler) Counts() logic.EventCounts {
	return s.counts
}

// CheckHeartbeat returns heartbeat data if interval has elapsed since the
// last heartbeat (or since start). A non-positive interval disables it.
func (s *Scheduler) CheckHeartbeat(now time.Time, interval time.Duration) *logic.HeartbeatData {
	if interval <= 0 || !s.heartbeat.AllowEvery(now, interval) {
		return nil
	}
	return &logic.HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(s.startTime),
		Mode:      s.modes.Current(),
		Counts:    s.counts,
	}
}

func ptr(v float64) *float64 {
	return &v
}
