// Package announce speaks messages without blocking the control loop.
//
// Messages come in two classes. Priority messages (mode changes, system
// notices) queue in FIFO order up to a fixed capacity and are never evicted.
// Normal messages (distance callouts, detections) share a single slot: a new
// one replaces any that has not been spoken yet. One worker renders
// messages one at a time, always priority before normal.
package announce

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/smartcane/internal/log"
)

// Class is the queueing class of a message.
type Class int

const (
	Normal Class = iota
	Priority
)

// String returns the class name.
func (c Class) String() string {
	if c == Priority {
		return "priority"
	}
	return "normal"
}

// Request is a queued message.
type Request struct {
	Text       string
	Class      Class
	EnqueuedAt time.Time
}

// Renderer speaks one message and returns when it has finished.
type Renderer interface {
	Render(ctx context.Context, text string) error
}

// Defaults.
const (
	DefaultQueueSize = 10
	DefaultWait      = 100 * time.Millisecond
	DefaultGrace     = 500 * time.Millisecond
)

// Config configures an Announcer.
type Config struct {
	// QueueSize bounds the priority queue.
	QueueSize int
	// Wait is how long the idle worker sleeps before re-checking the queues.
	Wait time.Duration
	// Grace is how long Close waits for the worker after cancelling a render.
	Grace time.Duration
	// Now is injectable for tests. nil means time.Now.
	Now func() time.Time
}

// Stats is a snapshot of announcer activity.
type Stats struct {
	Rendered uint64 `json:"rendered"`
	Failures uint64 `json:"failures"`
	Dropped  uint64 `json:"dropped"`
	Evicted  uint64 `json:"evicted"`
	Pending  int    `json:"pending"`
	Busy     bool   `json:"busy"`
}

// Announcer owns the message queues and the render worker.
type Announcer struct {
	cfg      Config
	renderer Renderer

	mu       sync.Mutex
	priority []Request
	normal   *Request
	busy     bool
	started  bool
	stopped  bool
	idle     chan struct{} // closed and replaced whenever the worker goes idle
	stats    Stats

	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an announcer. Messages may be enqueued before Start.
func New(r Renderer, cfg Config) *Announcer {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Wait <= 0 {
		cfg.Wait = DefaultWait
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Announcer{
		cfg:      cfg,
		renderer: r,
		idle:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the render worker. Calling it more than once, or after
// Close, does nothing.
func (a *Announcer) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.stopped {
		return
	}
	a.started = true
	go a.run()
}

// Enqueue queues a message and returns immediately.
func (a *Announcer) Enqueue(text string, class Class) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return ErrClosed
	}

	req := Request{Text: text, Class: class, EnqueuedAt: a.cfg.Now()}
	if class == Priority {
		if len(a.priority) >= a.cfg.QueueSize {
			a.stats.Dropped++
			a.mu.Unlock()
			return ErrQueueFull
		}
		a.priority = append(a.priority, req)
	} else {
		if a.normal != nil {
			a.stats.Evicted++
		}
		a.normal = &req
	}
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush waits until both queues are empty and no render is in flight.
func (a *Announcer) Flush(ctx context.Context) error {
	for {
		a.mu.Lock()
		if a.pendingLocked() == 0 && !a.busy {
			a.mu.Unlock()
			return nil
		}
		idle := a.idle
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// Close stops the worker. Pending messages are discarded and no render
// starts after Close is called. An in-flight render gets drain to finish;
// after that its context is cancelled and the worker gets a short grace
// period before ErrWorkerHung is returned.
func (a *Announcer) Close(drain time.Duration) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	a.stats.Dropped += uint64(a.pendingLocked())
	a.priority = nil
	a.normal = nil
	started := a.started
	if !a.busy {
		a.signalIdleLocked()
	}
	a.mu.Unlock()

	close(a.stop)
	defer a.cancel()

	if !started {
		return nil
	}

	timer := time.NewTimer(drain)
	defer timer.Stop()
	select {
	case <-a.done:
		return nil
	case <-timer.C:
	}

	a.cancel()
	grace := time.NewTimer(a.cfg.Grace)
	defer grace.Stop()
	select {
	case <-a.done:
		return nil
	case <-grace.C:
		return ErrWorkerHung
	}
}

// Stats returns a snapshot of the counters.
func (a *Announcer) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Pending = a.pendingLocked()
	s.Busy = a.busy
	return s
}

func (a *Announcer) run() {
	defer close(a.done)

	for {
		req, ok, stopped := a.take()
		if stopped {
			return
		}
		if !ok {
			timer := time.NewTimer(a.cfg.Wait)
			select {
			case <-a.stop:
				timer.Stop()
				return
			case <-a.wake:
			case <-timer.C:
			}
			timer.Stop()
			continue
		}

		err := a.renderer.Render(a.ctx, req.Text)
		a.finish(req, err)
	}
}

// take pops the next message, priority first, and marks the worker busy.
func (a *Announcer) take() (Request, bool, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return Request{}, false, true
	}
	if len(a.priority) > 0 {
		req := a.priority[0]
		a.priority[0] = Request{}
		a.priority = a.priority[1:]
		a.busy = true
		return req, true, false
	}
	if a.normal != nil {
		req := *a.normal
		a.normal = nil
		a.busy = true
		return req, true, false
	}
	return Request{}, false, false
}

func (a *Announcer) finish(req Request, err error) {
	if err != nil {
		log.Warn("announce render failed", "class", req.Class.String(), "err", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.busy = false
	if err != nil {
		a.stats.Failures++
	} else {
		a.stats.Rendered++
	}
	if a.pendingLocked() == 0 || a.stopped {
		a.signalIdleLocked()
	}
}

func (a *Announcer) pendingLocked() int {
	n := len(a.priority)
	if a.normal != nil {
		n++
	}
	return n
}

func (a *Announcer) signalIdleLocked() {
	close(a.idle)
	a.idle = make(chan struct{})
}
