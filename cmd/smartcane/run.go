package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/smartcane/internal/announce"
	"github.com/sweeney/smartcane/internal/button"
	"github.com/sweeney/smartcane/internal/cleanup"
	"github.com/sweeney/smartcane/internal/config"
	"github.com/sweeney/smartcane/internal/fault"
	"github.com/sweeney/smartcane/internal/gpio"
	"github.com/sweeney/smartcane/internal/haptic"
	"github.com/sweeney/smartcane/internal/log"
	"github.com/sweeney/smartcane/internal/mqtt"
	"github.com/sweeney/smartcane/internal/scheduler"
	"github.com/sweeney/smartcane/internal/sensor"
	"github.com/sweeney/smartcane/internal/status"
	"github.com/sweeney/smartcane/internal/vision"
	"github.com/sweeney/smartcane/internal/vision/yolo"
	"github.com/sweeney/smartcane/internal/web"
)

func run(parent context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	// Installed before any peripheral opens; a signal during startup waits
	// in the channel for runLoop.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var release cleanup.Stack
	defer func() {
		if cerr := release.Run(); cerr != nil {
			log.Warn("cleanup incomplete", "err", cerr)
		}
	}()

	startTime := time.Now()
	bootID := uuid.NewString()
	tracker := status.NewTracker(startTime, bootID, cfg.Status())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Released last, after the SHUTDOWN event has gone out.
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Error("http server error", "err", err)
			}
		}()
		release.Push("http", func() error {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
		log.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTTOptions())
		if err != nil {
			log.Warn("telemetry disabled", "err", err)
		} else {
			publisher = p
			release.Push("mqtt", p.Close)
		}
	}

	in := cfg.ButtonInput()
	btn, err := button.Open(cfg.ButtonTiming(), func(onEdge func()) (gpio.Reader, error) {
		in.OnEdge = onEdge
		return gpio.NewRealReader(in)
	})
	if err != nil {
		return err
	}
	release.Push("button", btn.Close)

	var detector vision.Detector
	if cfg.Camera.Enabled {
		cam, err := yolo.Open(yoloConfig(cfg))
		if err != nil {
			log.Warn("camera unavailable, running without detection", "err", fault.Hardware("camera", "open", err))
		} else {
			detector = cam
			release.Push("camera", cam.Close)
		}
	}

	ultra := sensor.NewUltrasonic(cfg.Ultrasonic(),
		sensor.SerialOpener(cfg.Sensor.Port, cfg.Sensor.Baud, sensor.DefaultReadTimeout))
	if err := ultra.Start(ctx); err != nil {
		log.Warn("ultrasonic sensor not ready, retrying in background", "err", err)
	}
	release.Push("ultrasonic", ultra.Close)

	w, err := gpio.NewRealWriter(cfg.Motor.Chip, cfg.Motor.Pin)
	if err != nil {
		return fault.Hardware("vibration", "open", err)
	}
	pulser := haptic.NewPulser(haptic.NewMotor(w))
	release.Push("vibration", pulser.Close)

	speaker := announce.New(announce.NewCommandRenderer(cfg.Speech.Script, cfg.Speech.Args...), cfg.Announcer())
	speaker.Start()
	release.Push("speech", func() error {
		fctx, fcancel := context.WithTimeout(context.Background(), cfg.Speech.Drain.D())
		defer fcancel()
		if err := speaker.Flush(fctx); err != nil {
			log.Warn("speech queue not drained", "err", err)
		}
		return speaker.Close(announce.DefaultGrace)
	})

	sched, err := scheduler.New(cfg.Scheduler(), scheduler.Deps{
		Button:    btn,
		Ranger:    ultra,
		Detector:  detector,
		Describer: cfg.Describer(),
		Speaker:   speaker,
		Vibrator:  pulser,
	}, startTime)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Greet()

	components := func() status.Components {
		a, u, h := speaker.Stats(), ultra.Stats(), pulser.Stats()
		return status.Components{
			Announcer: status.AnnouncerStats{Rendered: a.Rendered, Failures: a.Failures, Dropped: a.Dropped, Evicted: a.Evicted, Pending: a.Pending},
			Sensor:    status.SensorStats{Frames: u.Frames, Corrupt: u.Corrupt, BelowRange: u.BelowRange, Failures: u.Failures},
			Haptic:    status.HapticStats{Pulses: h.Pulses, Refused: h.Refused, Failures: h.Failures},
			Camera:    detector != nil,
		}
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn("failed to publish startup event", "err", err)
	}

	log.Info("started",
		"boot_id", bootID,
		"mode", sched.Mode(),
		"tick", cfg.Tick.D(),
		"camera", detector != nil,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.Heartbeat.D())

	ticker := time.NewTicker(cfg.Tick.D())
	defer ticker.Stop()

	return runLoop(ctx, cancel, loop{
		sched:      sched,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		components: components,
		heartbeat:  cfg.Heartbeat.D(),
	}, time.Now, ticker.C, sigCh)
}

// loop holds what runLoop drives. tracker, mqttStatus and components may be nil.
type loop struct {
	sched      *scheduler.Scheduler
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	components func() status.Components
	heartbeat  time.Duration
}

// errShutdown is the cancellation cause recorded when a signal arrives.
var errShutdown = errors.New("shutdown requested")

func runLoop(ctx context.Context, cancel context.CancelCauseFunc, l loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Info("shutting down", "signal", name)
			cancel(fmt.Errorf("%w: %s", errShutdown, name))
			l.publishShutdown(now(), name)
			return nil

		case <-ctx.Done():
			log.Info("shutting down", "cause", context.Cause(ctx))
			l.publishShutdown(now(), "CONTEXT")
			return nil

		case <-tick:
			t := now()
			for _, event := range l.sched.Tick(ctx, t) {
				log.Debug("event", "type", event.Type, "mode", event.Mode, "text", event.Text)
				if err := l.publisher.Publish(event); err != nil {
					log.Warn("publish error", "err", err)
				}
			}

			l.refresh()

			if hb := l.sched.CheckHeartbeat(t, l.heartbeat); hb != nil {
				log.Info("heartbeat",
					"uptime", hb.Uptime.Truncate(time.Second),
					"mode", hb.Mode,
					"obstacles", hb.Counts.Obstacles,
					"vibrations", hb.Counts.Vibrations,
					"mode_changes", hb.Counts.ModeChanges)

				event := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
				if l.tracker != nil {
					if net := readNetworkInfo(); net != nil {
						l.tracker.SetNetwork(net)
					}
					event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := l.publisher.PublishSystem(event); err != nil {
					log.Warn("heartbeat publish error", "err", err)
				}
			}
		}
	}
}

// refresh copies the scheduler and peripheral state into the tracker.
func (l loop) refresh() {
	if l.tracker == nil {
		return
	}
	d, ok := l.sched.Distance()
	l.tracker.Update(l.sched.Mode(), d, ok, l.sched.Counts())
	if l.components != nil {
		l.tracker.SetComponents(l.components())
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l loop) publishShutdown(at time.Time, reason string) {
	event := mqtt.SystemEvent{
		Timestamp: at,
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		l.refresh()
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Warn("failed to publish shutdown event", "err", err)
	} else {
		log.Info("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func yoloConfig(cfg config.Config) yolo.Config {
	y := yolo.DefaultConfig()
	y.Device = cfg.Camera.Device
	y.ModelPath = cfg.Camera.Model
	y.FrameWidth = cfg.Camera.Width
	y.FrameHeight = cfg.Camera.Height
	y.ConfidenceThresh = float32(cfg.Camera.Confidence)
	y.NMSThresh = float32(cfg.Camera.NMS)
	return y
}

// printState reads the button level and one ranging frame, then prints them.
func printState(ctx context.Context, cfg config.Config, out io.Writer) error {
	in := cfg.ButtonInput()
	in.Edge = gpio.EdgeNone
	reader, err := gpio.NewRealReader(in)
	if err != nil {
		return fault.Hardware("button", "open", err)
	}
	btn := button.New(reader, cfg.ButtonTiming())
	defer btn.Close()

	pressed, err := btn.Pressed()
	if err != nil {
		return err
	}

	mctx, mcancel := context.WithTimeout(ctx, 2*time.Second)
	defer mcancel()
	open := sensor.SerialOpener(cfg.Sensor.Port, cfg.Sensor.Baud, sensor.DefaultReadTimeout)
	cm, merr := sensor.Measure(mctx, open, cfg.Sensor.MinRangeMM)

	fmt.Fprintln(out, formatState(pressed, cm, merr))
	return nil
}

func formatState(pressed bool, cm float64, measureErr error) string {
	b := "RELEASED"
	if pressed {
		b = "PRESSED"
	}
	if measureErr != nil {
		return fmt.Sprintf("Button: %s, Distance: unknown (%v)", b, measureErr)
	}
	return fmt.Sprintf("Button: %s, Distance: %.1f cm", b, cm)
}

// say renders text once, bypassing the queue.
func say(ctx context.Context, cfg config.Config, text string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	r := announce.NewCommandRenderer(cfg.Speech.Script, cfg.Speech.Args...)
	return r.Render(ctx, text)
}
