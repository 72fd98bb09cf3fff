// Package transition paints a target color onto the strip one pixel at a time.
//
// At most one transition runs at any moment. Starting a new one cancels the
// running task and waits for it to exit before the new task is spawned, so two
// tasks never write the pixel buffer concurrently. Cancellation is checked
// between pixel writes: an aborted run leaves a prefix of pixels at its target
// and the rest untouched.
package transition

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/lampnode/internal/color"
	"github.com/smazurov/lampnode/internal/events"
)

// PixelWriter is the part of the strip the runner needs.
type PixelWriter interface {
	SetPixel(index int, c color.Color)
	Len() int
}

// Handle is the ownership token of one transition task.
type Handle struct {
	target    color.Color
	cancel    context.CancelFunc
	done      chan struct{}
	completed bool
	written   int
}

// Target returns the color captured when the task started.
func (h *Handle) Target() color.Color { return h.target }

// Done is closed when the task has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Completed reports whether every pixel was written. Valid after Done is closed.
func (h *Handle) Completed() bool {
	<-h.done
	return h.completed
}

// Written returns the number of pixels painted. Valid after Done is closed.
func (h *Handle) Written() int {
	<-h.done
	return h.written
}

// Runner owns the single in-flight transition.
type Runner struct {
	startMu sync.Mutex // serializes Start and Stop
	mu      sync.Mutex // guards active
	active  *Handle

	strip  PixelWriter
	delay  time.Duration
	bus    *events.Bus
	logger *slog.Logger
}

// NewRunner creates a runner writing to strip with delay between pixels.
func NewRunner(strip PixelWriter, delay time.Duration, bus *events.Bus, logger *slog.Logger) *Runner {
	return &Runner{
		strip:  strip,
		delay:  delay,
		bus:    bus,
		logger: logger,
	}
}

// Start supersedes any running transition and begins painting target.
// It returns once the previous task has exited and the new one is spawned.
func (r *Runner) Start(target color.Color) *Handle {
	r.startMu.Lock()
	defer r.startMu.Unlock()

	r.stopActive()

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		target: target,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	r.active = h
	r.mu.Unlock()

	r.logger.Info("Updating led color", "color", target.String(), "pixels", r.strip.Len())
	r.bus.Publish(events.TransitionStartedEvent{
		Color:     target.String(),
		Pixels:    r.strip.Len(),
		Timestamp: time.Now().Format(time.RFC3339),
	})

	go r.run(ctx, h)
	return h
}

// Stop cancels the running transition, if any, and waits for it to exit.
func (r *Runner) Stop() {
	r.startMu.Lock()
	defer r.startMu.Unlock()

	r.stopActive()
}

// Active returns the running task's handle or nil.
func (r *Runner) Active() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// stopActive must be called with startMu held.
func (r *Runner) stopActive() {
	r.mu.Lock()
	old := r.active
	r.mu.Unlock()

	if old == nil {
		return
	}
	old.cancel()
	<-old.done
}

func (r *Runner) run(ctx context.Context, h *Handle) {
	defer r.retire(h)

	timer := time.NewTimer(r.delay)
	defer timer.Stop()

	n := r.strip.Len()
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		r.strip.SetPixel(i, h.target)
		h.written = i + 1

		if i > 0 {
			timer.Reset(r.delay)
		}
		select {
		case <-ctx.Done():
			if h.written == n {
				h.completed = true
			}
			return
		case <-timer.C:
		}
	}
	h.completed = true
}

func (r *Runner) retire(h *Handle) {
	h.cancel()

	r.mu.Lock()
	if r.active == h {
		r.active = nil
	}
	r.mu.Unlock()

	if h.completed {
		r.logger.Debug("Transition completed", "color", h.target.String())
	} else {
		r.logger.Debug("Transition superseded", "color", h.target.String(), "written", h.written)
	}
	r.bus.Publish(events.TransitionFinishedEvent{
		Color:     h.target.String(),
		Completed: h.completed,
		Pixels:    h.written,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	close(h.done)
}
