package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/smartcane/internal/fault"
	"github.com/sweeney/smartcane/internal/log"
	"github.com/sweeney/smartcane/internal/logic"
)

// Defaults for the ultrasonic sensor on a Jetson Nano UART.
const (
	DefaultPort        = "/dev/ttyTHS1"
	DefaultBaud        = 9600
	DefaultMaxAge      = time.Second
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultReopenDelay = time.Second
	DefaultLogInterval = 5 * time.Second
)

// Opener opens the byte stream the sensor is attached to.
type Opener func() (io.ReadCloser, error)

// UltrasonicConfig configures the poller.
type UltrasonicConfig struct {
	MaxAge      time.Duration
	MinRangeMM  int
	ReopenDelay time.Duration
	// LogInterval throttles corruption and port error logs.
	LogInterval time.Duration
	// Now is injectable for tests. nil means time.Now.
	Now func() time.Time
}

// UltrasonicStats counts what the poller has seen since start.
type UltrasonicStats struct {
	Frames     uint64 `json:"frames"`
	Corrupt    uint64 `json:"corrupt"`
	BelowRange uint64 `json:"below_range"`
	Opens      uint64 `json:"opens"`
	Failures   uint64 `json:"failures"`
}

// Ultrasonic polls a ranging sensor in a background goroutine and keeps the
// latest valid distance (cm) in a Cache.
type Ultrasonic struct {
	cfg   UltrasonicConfig
	open  Opener
	cache *Cache[float64]

	// logLimit is only touched by the poller goroutine.
	logLimit  *logic.RateLimiter
	discarded int

	frames     atomic.Uint64
	corrupt    atomic.Uint64
	belowRange atomic.Uint64
	opens      atomic.Uint64
	failures   atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewUltrasonic creates a poller. Call Start to begin reading.
func NewUltrasonic(cfg UltrasonicConfig, open Opener) *Ultrasonic {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = DefaultLogInterval
	}
	if cfg.ReopenDelay <= 0 {
		cfg.ReopenDelay = DefaultReopenDelay
	}
	return &Ultrasonic{
		cfg:      cfg,
		open:     open,
		cache:    NewCache[float64](cfg.MaxAge),
		logLimit: logic.NewRateLimiter(cfg.LogInterval),
	}
}

// Start opens the port and launches the poller. An open failure is returned
// so a missing sensor is visible at startup; the poller keeps retrying in
// the background either way.
func (u *Ultrasonic) Start(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done != nil {
		return errors.New("ultrasonic already started")
	}

	port, err := u.open()
	if err != nil {
		err = fault.Hardware("ultrasonic", "open", err)
		u.failures.Add(1)
		port = nil
	} else {
		u.opens.Add(1)
	}

	ctx, u.cancel = context.WithCancel(ctx)
	u.done = make(chan struct{})
	go u.run(ctx, port)
	return err
}

// Distance returns the latest distance in centimeters, or false if nothing
// valid was captured within the max age.
func (u *Ultrasonic) Distance() (float64, bool) {
	return u.cache.Read(u.cfg.Now())
}

// Last returns the latest distance regardless of age.
func (u *Ultrasonic) Last() (Reading[float64], bool) {
	return u.cache.Last()
}

// Stats returns a snapshot of the poller counters.
func (u *Ultrasonic) Stats() UltrasonicStats {
	return UltrasonicStats{
		Frames:     u.frames.Load(),
		Corrupt:    u.corrupt.Load(),
		BelowRange: u.belowRange.Load(),
		Opens:      u.opens.Load(),
		Failures:   u.failures.Load(),
	}
}

// Close stops the poller and waits for it to release the port.
func (u *Ultrasonic) Close() error {
	u.mu.Lock()
	cancel, done := u.cancel, u.done
	u.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (u *Ultrasonic) run(ctx context.Context, port io.ReadCloser) {
	defer close(u.done)

	for {
		if port == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(u.cfg.ReopenDelay):
			}
			p, err := u.open()
			if err != nil {
				u.failures.Add(1)
				u.logThrottled("ultrasonic open failed", "err", err)
				continue
			}
			u.opens.Add(1)
			log.Info("ultrasonic port opened")
			port = p
		}

		err := u.readFrames(ctx, port)
		if cerr := port.Close(); cerr != nil {
			log.Debug("ultrasonic close failed", "err", cerr)
		}
		port = nil
		if ctx.Err() != nil {
			return
		}
		u.failures.Add(1)
		u.logThrottled("ultrasonic read failed", "err", err)
	}
}

// readFrames reads until the port fails or ctx is done.
func (u *Ultrasonic) readFrames(ctx context.Context, port io.Reader) error {
	fr := NewFrameReader(port)
	for ctx.Err() == nil {
		f, err := fr.Next()
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		u.handleFrame(f)
	}
	return ctx.Err()
}

// handleFrame validates one frame and updates the cache. Invalid frames
// leave the cache untouched.
func (u *Ultrasonic) handleFrame(f Frame) {
	mm, err := Decode(f, u.cfg.MinRangeMM)
	if err != nil {
		if errors.Is(err, ErrBelowRange) {
			u.belowRange.Add(1)
		} else {
			u.corrupt.Add(1)
		}
		u.discarded++
		u.logThrottled("ultrasonic frames discarded", "err", err, "count", u.discarded)
		return
	}
	u.frames.Add(1)
	u.cache.Store(MillimetersToCM(mm), u.cfg.Now())
}

func (u *Ultrasonic) logThrottled(msg string, args ...any) {
	if !u.logLimit.Allow(u.cfg.Now()) {
		return
	}
	log.Warn(msg, args...)
	u.discarded = 0
}

// Measure opens the port, returns the first valid distance in centimeters
// and closes the port. Used for one-shot diagnostics.
func Measure(ctx context.Context, open Opener, minRangeMM int) (float64, error) {
	port, err := open()
	if err != nil {
		return 0, fault.Hardware("ultrasonic", "open", err)
	}
	defer port.Close()

	fr := NewFrameReader(port)
	var lastErr error
	for ctx.Err() == nil {
		f, err := fr.Next()
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			return 0, fault.Hardware("ultrasonic", "read", err)
		}
		mm, err := Decode(f, minRangeMM)
		if err != nil {
			lastErr = err
			continue
		}
		return MillimetersToCM(mm), nil
	}
	if lastErr != nil {
		return 0, fmt.Errorf("no valid frame: %w", lastErr)
	}
	return 0, ctx.Err()
}
