package led

import (
	"log/slog"
	"sync"
)

// Activity is the request busy indicator. The LED is on while idle and off
// while at least one request is being handled. It drives its own LED so it
// never competes with the status task.
type Activity struct {
	controller Controller
	name       string
	logger     *slog.Logger

	mu       sync.Mutex
	inflight int
}

// NewActivity creates a busy indicator on the named LED. An empty name
// disables it. A nil *Activity is valid and does nothing.
func NewActivity(controller Controller, name string, logger *slog.Logger) *Activity {
	return &Activity{
		controller: controller,
		name:       name,
		logger:     logger,
	}
}

// Idle turns the LED on. Called once the server starts listening.
func (a *Activity) Idle() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight == 0 {
		a.set(true)
	}
}

// Begin marks the start of a request.
func (a *Activity) Begin() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight++
	if a.inflight == 1 {
		a.set(false)
	}
}

// End marks the end of a request.
func (a *Activity) End() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight == 0 {
		return
	}
	a.inflight--
	if a.inflight == 0 {
		a.set(true)
	}
}

func (a *Activity) set(on bool) {
	if a.name == "" {
		return
	}
	if err := a.controller.Set(a.name, on); err != nil {
		a.logger.Debug("Failed to set activity LED", "led", a.name, "error", err)
	}
}
